package rig

import (
	"log"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"

	"github.com/mirelat/animview/render"
	"github.com/mirelat/animview/utils"
)

// Load reads a .gltf or .glb file and materializes a Model. GPU buffers for
// the mesh data are created through r; the caller owns the returned model
// and must Release it through the same renderer.
func Load(path string, r render.Renderer) (*Model, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to open gltf %q", path)
	}
	return LoadDocument(doc, path, r)
}

// LoadDocument materializes a Model from an already decoded document.
// Buffer data must be resolved (gltf.Open does this for embedded and
// external URIs).
func LoadDocument(doc *gltf.Document, name string, r render.Renderer) (*Model, error) {
	m := &Model{
		Name:    name,
		Scale:   1,
		Visible: true,
	}

	if err := loadMeshes(doc, m, r); err != nil {
		return nil, err
	}
	if err := loadSkeleton(doc, m); err != nil {
		m.Release(r)
		return nil, err
	}
	if err := loadAnimations(doc, m); err != nil {
		m.Release(r)
		return nil, err
	}

	log.Printf("[rig] Loaded model %q: %d meshes, %d joints, %d clips",
		name, len(m.Meshes), m.Skeleton.JointCount(), len(m.Clips))

	return m, nil
}

func loadMeshes(doc *gltf.Document, m *Model, r render.Renderer) error {
	for meshIdx, gm := range doc.Meshes {
		for primIdx, prim := range gm.Primitives {
			mesh, err := loadPrimitive(doc, prim)
			if err != nil {
				log.Printf("[rig] Skipping mesh %d primitive %d: %v", meshIdx, primIdx, err)
				continue
			}

			mesh.VertexBuffer = r.CreateVertexBuffer(mesh.PackVertices())
			if len(mesh.Indices) != 0 {
				mesh.IndexBuffer = r.CreateIndexBuffer(mesh.PackIndices())
			}

			m.Meshes = append(m.Meshes, *mesh)
		}
	}
	return nil
}

func loadPrimitive(doc *gltf.Document, prim *gltf.Primitive) (*Mesh, error) {
	accessor := func(idx uint32) (*gltf.Accessor, error) {
		if int(idx) >= len(doc.Accessors) {
			return nil, errors.Errorf("accessor %d out of range", idx)
		}
		return doc.Accessors[idx], nil
	}

	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return nil, errors.Errorf("no POSITION attribute")
	}
	posAcc, err := accessor(posIdx)
	if err != nil {
		return nil, err
	}
	positions, err := readVec3(doc, posAcc)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to read positions")
	}

	mesh := &Mesh{Vertices: make([]SkinnedVertex, len(positions))}
	for i := range mesh.Vertices {
		mesh.Vertices[i].Position = positions[i]
		// default binding: full weight on the root joint
		mesh.Vertices[i].Weights = [4]float32{1, 0, 0, 0}
	}

	if normIdx, ok := prim.Attributes[gltf.NORMAL]; ok {
		if acc, err := accessor(normIdx); err == nil {
			if normals, err := readVec3(doc, acc); err != nil {
				log.Printf("[rig] Bad NORMAL accessor: %v", err)
			} else {
				for i := range mesh.Vertices {
					if i < len(normals) {
						mesh.Vertices[i].Normal = normals[i]
					}
				}
			}
		}
	}

	if texIdx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
		if acc, err := accessor(texIdx); err == nil {
			if coords, err := readVec2(doc, acc); err != nil {
				log.Printf("[rig] Bad TEXCOORD_0 accessor: %v", err)
			} else {
				for i := range mesh.Vertices {
					if i < len(coords) {
						mesh.Vertices[i].TexCoord = coords[i]
					}
				}
			}
		}
	}

	jointsIdx, hasJoints := prim.Attributes[gltf.JOINTS_0]
	weightsIdx, hasWeights := prim.Attributes[gltf.WEIGHTS_0]
	if hasJoints && hasWeights {
		jointsAcc, errJ := accessor(jointsIdx)
		weightsAcc, errW := accessor(weightsIdx)
		if errJ != nil || errW != nil {
			log.Printf("[rig] Bad skinning accessors, keeping root binding")
		} else {
			joints, err := readJointIndices(doc, jointsAcc)
			if err != nil {
				log.Printf("[rig] Bad JOINTS_0 accessor, keeping root binding: %v", err)
			} else {
				weights, err := readVec4F32(doc, weightsAcc)
				if err != nil {
					log.Printf("[rig] Bad WEIGHTS_0 accessor, keeping root binding: %v", err)
				} else {
					for i := range mesh.Vertices {
						if i < len(joints) && i < len(weights) {
							mesh.Vertices[i].Joints = joints[i]
							mesh.Vertices[i].Weights = weights[i]
						}
					}
				}
			}
		}
	}

	if prim.Indices != nil {
		acc, err := accessor(*prim.Indices)
		if err != nil {
			return nil, err
		}
		indices, err := readIndices(doc, acc)
		if err != nil {
			// unsupported index component type: drop the whole primitive
			return nil, errors.Wrapf(err, "Failed to read indices")
		}
		mesh.Indices = indices
	}

	return mesh, nil
}

// nodeRest extracts a node's TRS, substituting glTF defaults for zero
// values so documents built in memory behave like decoded ones.
func nodeRest(node *gltf.Node) (mgl32.Vec3, mgl32.Quat, mgl32.Vec3) {
	t := mgl32.Vec3{node.Translation[0], node.Translation[1], node.Translation[2]}

	r := mgl32.Quat{
		W: node.Rotation[3],
		V: mgl32.Vec3{node.Rotation[0], node.Rotation[1], node.Rotation[2]},
	}
	if r.W == 0 && r.V.Len() == 0 {
		r = mgl32.QuatIdent()
	}

	s := mgl32.Vec3{node.Scale[0], node.Scale[1], node.Scale[2]}
	if s.Len() == 0 {
		s = mgl32.Vec3{1, 1, 1}
	}

	return t, r, s
}

func loadSkeleton(doc *gltf.Document, m *Model) error {
	m.Skeleton = &Skeleton{
		JointByName: make(map[string]int),
		NodeToJoint: make(map[uint32]int),
	}
	if len(doc.Skins) == 0 {
		return nil
	}
	if len(doc.Skins) > 1 {
		log.Printf("[rig] Model has %d skins, using the first one", len(doc.Skins))
	}
	skin := doc.Skins[0]
	sk := m.Skeleton

	for i, nodeIdx := range skin.Joints {
		if int(nodeIdx) >= len(doc.Nodes) {
			return errors.Errorf("skin joint %d references node %d out of range", i, nodeIdx)
		}
		node := doc.Nodes[nodeIdx]

		j := Joint{
			Name:        node.Name,
			Parent:      JointParentNone,
			InverseBind: mgl32.Ident4(),
		}
		j.RestTranslation, j.RestRotation, j.RestScale = nodeRest(node)
		j.ResetPose()
		j.Local = utils.ComposeTRS(j.Translation, j.Rotation, j.Scale)

		// O(n^2) parent scan over the skin's joint nodes. Skeletons are a
		// few dozen joints, so this beats building child->parent tables.
		for pi, parentNodeIdx := range skin.Joints {
			if int(parentNodeIdx) >= len(doc.Nodes) {
				continue
			}
			for _, child := range doc.Nodes[parentNodeIdx].Children {
				if child == nodeIdx {
					j.Parent = pi
				}
			}
		}
		if j.Parent >= i {
			// conforming exporters list parents before children; flag it
			// loudly because pose propagation depends on that order
			log.Printf("[rig] Joint %q (%d) listed before its parent %d, poses will be wrong", j.Name, i, j.Parent)
		}

		if _, taken := sk.JointByName[j.Name]; taken {
			log.Printf("[rig] Duplicate joint name %q, name lookups keep the first occurrence", j.Name)
		} else {
			sk.JointByName[j.Name] = i
		}
		sk.NodeToJoint[nodeIdx] = i
		sk.Joints = append(sk.Joints, j)
	}

	if skin.InverseBindMatrices != nil {
		if int(*skin.InverseBindMatrices) >= len(doc.Accessors) {
			return errors.Errorf("inverse bind accessor %d out of range", *skin.InverseBindMatrices)
		}
		mats, err := readMat4(doc, doc.Accessors[*skin.InverseBindMatrices])
		if err != nil {
			return errors.Wrapf(err, "Failed to read inverse bind matrices")
		}
		if len(mats) < len(sk.Joints) {
			return errors.Errorf("skin has %d joints but %d inverse bind matrices", len(sk.Joints), len(mats))
		}
		for i := range sk.Joints {
			sk.Joints[i].InverseBind = mats[i]
		}
	}

	m.BoneMatrices = make([]mgl32.Mat4, len(sk.Joints))
	for i := range m.BoneMatrices {
		m.BoneMatrices[i] = mgl32.Ident4()
	}

	return nil
}

func loadAnimations(doc *gltf.Document, m *Model) error {
	m.ClipByName = make(map[string]int)
	var names utils.UniqueNameGenerator

	for animIdx, ga := range doc.Animations {
		clip := AnimationClip{Name: ga.Name}
		if clip.Name == "" {
			clip.Name = names.Generate("clip")
			log.Printf("[rig] Animation %d has no name, calling it %q", animIdx, clip.Name)
		} else if _, taken := m.ClipByName[clip.Name]; taken {
			renamed := names.Generate(clip.Name)
			log.Printf("[rig] Duplicate clip name %q, renamed to %q", clip.Name, renamed)
			clip.Name = renamed
		} else {
			names.Reserve(clip.Name)
		}

		for chIdx, ch := range ga.Channels {
			channel, err := loadChannel(doc, m.Skeleton, ga, ch)
			if err != nil {
				log.Printf("[rig] Clip %q: skipping channel %d: %v", clip.Name, chIdx, err)
				continue
			}
			if channel == nil {
				continue // deliberately unsupported target path
			}

			for _, kf := range channel.Keyframes {
				if kf.Time > clip.Duration {
					clip.Duration = kf.Time
				}
			}
			clip.Channels = append(clip.Channels, *channel)
		}

		m.ClipByName[clip.Name] = len(m.Clips)
		m.Clips = append(m.Clips, clip)
	}

	return nil
}

func loadChannel(doc *gltf.Document, sk *Skeleton, ga *gltf.Animation, ch *gltf.Channel) (*AnimationChannel, error) {
	if ch.Sampler == nil || int(*ch.Sampler) >= len(ga.Samplers) {
		return nil, errors.Errorf("missing sampler")
	}
	if ch.Target.Node == nil {
		return nil, errors.Errorf("channel has no target node")
	}
	sampler := ga.Samplers[*ch.Sampler]

	var prop ChannelProperty
	switch ch.Target.Path {
	case gltf.TRSTranslation:
		prop = PropertyTranslation
	case gltf.TRSRotation:
		prop = PropertyRotation
	case gltf.TRSScale:
		prop = PropertyScale
	case gltf.TRSWeights:
		return nil, nil // morph targets are not animated here
	default:
		return nil, errors.Errorf("unsupported target path %v", ch.Target.Path)
	}

	jointIdx, err := resolveTargetJoint(doc, sk, *ch.Target.Node)
	if err != nil {
		return nil, err
	}

	if sampler.Input == nil || sampler.Output == nil {
		return nil, errors.Errorf("sampler accessors out of range")
	}
	if int(*sampler.Input) >= len(doc.Accessors) || int(*sampler.Output) >= len(doc.Accessors) {
		return nil, errors.Errorf("sampler accessors out of range")
	}
	times, err := readScalarF32(doc, doc.Accessors[*sampler.Input])
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to read keyframe times")
	}
	outAcc := doc.Accessors[*sampler.Output]
	if prop == PropertyRotation {
		if outAcc.Type != gltf.AccessorVec4 {
			return nil, errors.Errorf("rotation output must be vec4, got %v", outAcc.Type)
		}
	} else if outAcc.Type != gltf.AccessorVec3 {
		return nil, errors.Errorf("%v output must be vec3, got %v", prop, outAcc.Type)
	}
	values, err := readPaddedF32(doc, outAcc)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to read keyframe values")
	}

	n := len(times)
	if len(values) < n {
		log.Printf("[rig] Channel has %d times but %d values, truncating", len(times), len(values))
		n = len(values)
	}

	channel := &AnimationChannel{
		Joint:     jointIdx,
		Property:  prop,
		Keyframes: make([]Keyframe, n),
	}
	for i := 0; i < n; i++ {
		channel.Keyframes[i] = Keyframe{Time: times[i], Value: values[i]}
	}

	return channel, nil
}

// resolveTargetJoint maps a channel's target node to a skeleton joint,
// primarily through the node index map built during skin processing, with a
// name-equality fallback for rigs whose clips were exported against a
// different node layout.
func resolveTargetJoint(doc *gltf.Document, sk *Skeleton, nodeIdx uint32) (int, error) {
	if j, ok := sk.NodeToJoint[nodeIdx]; ok {
		return j, nil
	}
	if int(nodeIdx) < len(doc.Nodes) {
		name := doc.Nodes[nodeIdx].Name
		if j, ok := sk.JointByName[name]; ok {
			log.Printf("[rig] Channel target node %d resolved by name %q", nodeIdx, name)
			return j, nil
		}
	}
	return 0, errors.Errorf("target node %d is not a skeleton joint", nodeIdx)
}
