package web

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/qmuntal/gltf"

	"github.com/mirelat/animview/engine"
	"github.com/mirelat/animview/render"
	"github.com/mirelat/animview/rig"
)

// viewerDoc is a single-triangle model with two empty named clips, enough
// surface for the HTTP routes without a full skinned rig.
func viewerDoc() *gltf.Document {
	data := make([]byte, 9*4)
	for i, v := range []float32{0, 0, 0, 1, 0, 0, 0, 1, 0} {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(v))
	}
	bv := uint32(0)
	return &gltf.Document{
		Buffers:     []*gltf.Buffer{{ByteLength: uint32(len(data)), Data: data}},
		BufferViews: []*gltf.BufferView{{Buffer: 0, ByteLength: uint32(len(data))}},
		Accessors: []*gltf.Accessor{{
			BufferView:    &bv,
			ComponentType: gltf.ComponentFloat,
			Type:          gltf.AccessorVec3,
			Count:         3,
		}},
		Meshes: []*gltf.Mesh{{
			Primitives: []*gltf.Primitive{{
				Attributes: gltf.Attribute{gltf.POSITION: 0},
			}},
		}},
		Animations: []*gltf.Animation{
			{Name: "Walk"},
			{Name: "Run"},
		},
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *engine.Engine, rig.Handle) {
	t.Helper()
	eng := engine.New(render.NewMemoryRenderer())
	h := eng.LoadDocument(viewerDoc(), "viewer-test")
	if h == rig.HandleInvalid {
		t.Fatal("LoadDocument returned the invalid handle")
	}
	ts := httptest.NewServer(newRouter(&server{eng: eng}, t.TempDir()))
	t.Cleanup(ts.Close)
	return ts, eng, h
}

func getJson(t *testing.T, url string, out interface{}) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("GET %s: decode: %v", url, err)
	}
}

func TestHandlerModels(t *testing.T) {
	ts, _, h := newTestServer(t)

	var models []engine.ModelInfo
	getJson(t, ts.URL+"/json/models", &models)
	if len(models) != 1 {
		t.Fatalf("models=%d; expected 1", len(models))
	}
	if models[0].Handle != h || models[0].Name != "viewer-test" {
		t.Errorf("model=%+v; expected handle %d name viewer-test", models[0], h)
	}
	if len(models[0].ClipNames) != 2 {
		t.Errorf("clip names=%v; expected Walk and Run", models[0].ClipNames)
	}
}

func TestHandlerModelDetail(t *testing.T) {
	ts, _, h := newTestServer(t)

	var detail engine.ModelDetail
	getJson(t, fmt.Sprintf("%s/json/model/%d", ts.URL, h), &detail)
	if detail.MeshCount != 1 {
		t.Errorf("mesh count=%d; expected 1", detail.MeshCount)
	}
	if len(detail.Clips) != 2 || detail.Clips[0].Name != "Walk" {
		t.Errorf("clips=%+v; expected Walk first", detail.Clips)
	}
}

func TestHandlerModelNotFound(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/json/model/99999")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["error"] == "" {
		t.Errorf("body=%v; expected an error field", body)
	}
}

func TestHandlerBadHandle(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/json/model/banana")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(body["error"], "banana") {
		t.Errorf("error=%q; expected it to name the bad handle", body["error"])
	}
}

func TestHandlerSetClip(t *testing.T) {
	ts, eng, h := newTestServer(t)

	var name string
	getJson(t, fmt.Sprintf("%s/action/model/%d/set/Run?loop=1", ts.URL, h), &name)
	if name != "Run" {
		t.Errorf("response=%q; expected Run", name)
	}
	if got := eng.GetCurrentAnimationName(h); got != "Run" {
		t.Errorf("engine clip=%q; expected Run", got)
	}
}

func TestHandlerBlendClipImmediate(t *testing.T) {
	ts, eng, h := newTestServer(t)

	var name string
	getJson(t, fmt.Sprintf("%s/action/model/%d/blend/Run?seconds=0", ts.URL, h), &name)
	if name != "Run" {
		t.Errorf("response=%q; expected immediate switch to Run", name)
	}
	if got := eng.GetCurrentAnimationName(h); got != "Run" {
		t.Errorf("engine clip=%q; expected Run", got)
	}
}

func TestHandlerBlendBadSeconds(t *testing.T) {
	ts, _, h := newTestServer(t)

	resp, err := http.Get(fmt.Sprintf("%s/action/model/%d/blend/Run?seconds=soon", ts.URL, h))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["error"] == "" {
		t.Errorf("body=%v; expected an error for non-numeric seconds", body)
	}
}

func TestHandlerStopAndUnload(t *testing.T) {
	ts, eng, h := newTestServer(t)

	var msg string
	getJson(t, fmt.Sprintf("%s/action/model/%d/stop", ts.URL, h), &msg)
	if msg != "stopped" {
		t.Errorf("stop response=%q; expected stopped", msg)
	}

	getJson(t, fmt.Sprintf("%s/action/model/%d/unload", ts.URL, h), &msg)
	if msg != "unloaded" {
		t.Errorf("unload response=%q; expected unloaded", msg)
	}
	if eng.ModelCount() != 0 {
		t.Errorf("ModelCount=%d; expected 0 after unload", eng.ModelCount())
	}

	// pose queries on the dead handle now fail
	resp, err := http.Get(fmt.Sprintf("%s/json/model/%d/pose", ts.URL, h))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["error"] == "" {
		t.Errorf("pose body=%v; expected an error for the unloaded model", body)
	}
}

func TestHandlerUploadModel(t *testing.T) {
	ts, eng, _ := newTestServer(t)

	asset := `{
  "asset": {"version": "2.0"},
  "buffers": [{"byteLength": 12, "uri": "data:application/octet-stream;base64,AAAAAAAAAAAAAAAA"}],
  "bufferViews": [{"buffer": 0, "byteOffset": 0, "byteLength": 12}],
  "accessors": [{"bufferView": 0, "componentType": 5126, "count": 1, "type": "VEC3"}],
  "meshes": [{"primitives": [{"attributes": {"POSITION": 0}}]}]
}`

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("model", "point.gltf")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte(asset)); err != nil {
		t.Fatal(err)
	}
	mw.Close()

	resp, err := http.Post(ts.URL+"/upload/model", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var h rig.Handle
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		t.Fatal(err)
	}
	if h == rig.HandleInvalid {
		t.Fatal("upload returned the invalid handle")
	}
	if eng.ModelCount() != 2 {
		t.Errorf("ModelCount=%d; expected 2 after upload", eng.ModelCount())
	}
}

func TestHandlerDumpModel(t *testing.T) {
	ts, _, h := newTestServer(t)

	resp, err := http.Get(fmt.Sprintf("%s/dump/model/%d", ts.URL, h))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("dump status=%d", resp.StatusCode)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, fmt.Sprintf("model_%d.txt", h)) {
		t.Errorf("Content-Disposition=%q; expected the dump filename", cd)
	}
}
