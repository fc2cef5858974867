package rig

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
)

func componentSize(t gltf.ComponentType) int {
	switch t {
	case gltf.ComponentByte, gltf.ComponentUbyte:
		return 1
	case gltf.ComponentShort, gltf.ComponentUshort:
		return 2
	case gltf.ComponentUint, gltf.ComponentFloat:
		return 4
	}
	return 0
}

func typeComponents(t gltf.AccessorType) int {
	switch t {
	case gltf.AccessorScalar:
		return 1
	case gltf.AccessorVec2:
		return 2
	case gltf.AccessorVec3:
		return 3
	case gltf.AccessorVec4, gltf.AccessorMat2:
		return 4
	case gltf.AccessorMat3:
		return 9
	case gltf.AccessorMat4:
		return 16
	}
	return 0
}

func f32(d []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(d[off : off+4]))
}
func u32(d []byte, off int) uint32 {
	return binary.LittleEndian.Uint32(d[off : off+4])
}
func u16(d []byte, off int) uint16 {
	return binary.LittleEndian.Uint16(d[off : off+2])
}

// accessorView resolves an accessor to its backing byte slice positioned at
// the first element, plus the element stride. Sparse accessors and accessors
// without a buffer view are not supported.
func accessorView(doc *gltf.Document, a *gltf.Accessor) ([]byte, int, error) {
	if a.BufferView == nil {
		return nil, 0, errors.Errorf("accessor %q has no buffer view", a.Name)
	}
	if int(*a.BufferView) >= len(doc.BufferViews) {
		return nil, 0, errors.Errorf("buffer view %d out of range", *a.BufferView)
	}
	bv := doc.BufferViews[*a.BufferView]
	if int(bv.Buffer) >= len(doc.Buffers) {
		return nil, 0, errors.Errorf("buffer %d out of range", bv.Buffer)
	}
	data := doc.Buffers[bv.Buffer].Data

	elemSize := componentSize(a.ComponentType) * typeComponents(a.Type)
	if elemSize == 0 {
		return nil, 0, errors.Errorf("accessor %q: unknown element layout %v/%v", a.Name, a.ComponentType, a.Type)
	}
	stride := int(bv.ByteStride)
	if stride == 0 {
		stride = elemSize
	}

	start := int(bv.ByteOffset) + int(a.ByteOffset)
	need := start + int(a.Count-1)*stride + elemSize
	if a.Count == 0 {
		need = start
	}
	if need > len(data) {
		return nil, 0, errors.Errorf("accessor %q overruns buffer: need %d bytes, have %d", a.Name, need, len(data))
	}

	return data[start:], stride, nil
}

func readScalarF32(doc *gltf.Document, a *gltf.Accessor) ([]float32, error) {
	if a.ComponentType != gltf.ComponentFloat || a.Type != gltf.AccessorScalar {
		return nil, errors.Errorf("accessor %q: expected float scalar, got %v/%v", a.Name, a.ComponentType, a.Type)
	}
	data, stride, err := accessorView(doc, a)
	if err != nil {
		return nil, err
	}
	out := make([]float32, a.Count)
	for i := range out {
		out[i] = f32(data, i*stride)
	}
	return out, nil
}

// readPaddedF32 reads float vectors of the accessor's arity into
// zero-padded 4-component values, the storage form of keyframes.
func readPaddedF32(doc *gltf.Document, a *gltf.Accessor) ([][4]float32, error) {
	comps := typeComponents(a.Type)
	if a.ComponentType != gltf.ComponentFloat || comps < 1 || comps > 4 {
		return nil, errors.Errorf("accessor %q: expected float vec1..4, got %v/%v", a.Name, a.ComponentType, a.Type)
	}
	data, stride, err := accessorView(doc, a)
	if err != nil {
		return nil, err
	}
	out := make([][4]float32, a.Count)
	for i := range out {
		for c := 0; c < comps; c++ {
			out[i][c] = f32(data, i*stride+c*4)
		}
	}
	return out, nil
}

func readVec3(doc *gltf.Document, a *gltf.Accessor) ([][3]float32, error) {
	if a.ComponentType != gltf.ComponentFloat || a.Type != gltf.AccessorVec3 {
		return nil, errors.Errorf("accessor %q: expected float vec3, got %v/%v", a.Name, a.ComponentType, a.Type)
	}
	data, stride, err := accessorView(doc, a)
	if err != nil {
		return nil, err
	}
	out := make([][3]float32, a.Count)
	for i := range out {
		out[i] = [3]float32{f32(data, i*stride), f32(data, i*stride+4), f32(data, i*stride+8)}
	}
	return out, nil
}

func readVec2(doc *gltf.Document, a *gltf.Accessor) ([][2]float32, error) {
	if a.ComponentType != gltf.ComponentFloat || a.Type != gltf.AccessorVec2 {
		return nil, errors.Errorf("accessor %q: expected float vec2, got %v/%v", a.Name, a.ComponentType, a.Type)
	}
	data, stride, err := accessorView(doc, a)
	if err != nil {
		return nil, err
	}
	out := make([][2]float32, a.Count)
	for i := range out {
		out[i] = [2]float32{f32(data, i*stride), f32(data, i*stride+4)}
	}
	return out, nil
}

func readVec4F32(doc *gltf.Document, a *gltf.Accessor) ([][4]float32, error) {
	if a.ComponentType != gltf.ComponentFloat || a.Type != gltf.AccessorVec4 {
		return nil, errors.Errorf("accessor %q: expected float vec4, got %v/%v", a.Name, a.ComponentType, a.Type)
	}
	return readPaddedF32(doc, a)
}

func readMat4(doc *gltf.Document, a *gltf.Accessor) ([]mgl32.Mat4, error) {
	if a.ComponentType != gltf.ComponentFloat || a.Type != gltf.AccessorMat4 {
		return nil, errors.Errorf("accessor %q: expected float mat4, got %v/%v", a.Name, a.ComponentType, a.Type)
	}
	data, stride, err := accessorView(doc, a)
	if err != nil {
		return nil, err
	}
	out := make([]mgl32.Mat4, a.Count)
	for i := range out {
		for c := 0; c < 16; c++ {
			out[i][c] = f32(data, i*stride+c*4)
		}
	}
	return out, nil
}

// readJointIndices reads JOINTS_0 as 4 byte-sized indices per vertex.
func readJointIndices(doc *gltf.Document, a *gltf.Accessor) ([][4]uint8, error) {
	if a.ComponentType != gltf.ComponentUbyte || a.Type != gltf.AccessorVec4 {
		return nil, errors.Errorf("accessor %q: expected ubyte vec4 joints, got %v/%v", a.Name, a.ComponentType, a.Type)
	}
	data, stride, err := accessorView(doc, a)
	if err != nil {
		return nil, err
	}
	out := make([][4]uint8, a.Count)
	for i := range out {
		copy(out[i][:], data[i*stride:i*stride+4])
	}
	return out, nil
}

// readIndices accepts unsigned 16-bit or 32-bit scalar accessors only.
func readIndices(doc *gltf.Document, a *gltf.Accessor) ([]uint32, error) {
	if a.Type != gltf.AccessorScalar {
		return nil, errors.Errorf("accessor %q: index accessor must be scalar, got %v", a.Name, a.Type)
	}
	data, stride, err := accessorView(doc, a)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, a.Count)
	switch a.ComponentType {
	case gltf.ComponentUshort:
		for i := range out {
			out[i] = uint32(u16(data, i*stride))
		}
	case gltf.ComponentUint:
		for i := range out {
			out[i] = u32(data, i*stride)
		}
	default:
		return nil, errors.Errorf("accessor %q: unsupported index component type %v", a.Name, a.ComponentType)
	}
	return out, nil
}
