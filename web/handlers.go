package web

import (
	"io/ioutil"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/mirelat/animview/rig"
	"github.com/mirelat/animview/webutils"
)

func muxHandle(r *http.Request) (rig.Handle, error) {
	raw := mux.Vars(r)["handle"]
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return rig.HandleInvalid, errors.Errorf("handle '%s' is not an integer", raw)
	}
	return rig.Handle(v), nil
}

func queryBool(r *http.Request, key string) bool {
	v := strings.ToLower(r.URL.Query().Get(key))
	return v == "1" || v == "true" || v == "yes"
}

func (s *server) handlerModels(w http.ResponseWriter, r *http.Request) {
	webutils.WriteJson(w, s.eng.List())
}

func (s *server) handlerModel(w http.ResponseWriter, r *http.Request) {
	h, err := muxHandle(r)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	detail, ok := s.eng.Describe(h)
	if !ok {
		webutils.WriteError(w, errors.Errorf("model %d not found", h))
		return
	}
	webutils.WriteJson(w, detail)
}

func (s *server) handlerModelPose(w http.ResponseWriter, r *http.Request) {
	h, err := muxHandle(r)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	mats, ok := s.eng.GetBoneMatrices(h)
	if !ok {
		webutils.WriteError(w, errors.Errorf("model %d not found", h))
		return
	}
	webutils.WriteJson(w, mats)
}

func (s *server) handlerSetClip(w http.ResponseWriter, r *http.Request) {
	h, err := muxHandle(r)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	clip := mux.Vars(r)["clip"]
	s.eng.SetAnimation(h, clip, queryBool(r, "loop"))
	webutils.WriteJson(w, s.eng.GetCurrentAnimationName(h))
}

func (s *server) handlerBlendClip(w http.ResponseWriter, r *http.Request) {
	h, err := muxHandle(r)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	clip := mux.Vars(r)["clip"]

	seconds := float64(0.25)
	if raw := r.URL.Query().Get("seconds"); raw != "" {
		if seconds, err = strconv.ParseFloat(raw, 32); err != nil {
			webutils.WriteError(w, errors.Errorf("seconds '%s' is not a number", raw))
			return
		}
	}

	s.eng.BlendAnimation(h, clip, float32(seconds), queryBool(r, "loop"))
	webutils.WriteJson(w, s.eng.GetCurrentAnimationName(h))
}

func (s *server) handlerStopClip(w http.ResponseWriter, r *http.Request) {
	h, err := muxHandle(r)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	s.eng.StopAnimation(h)
	webutils.WriteJson(w, "stopped")
}

func (s *server) handlerUnload(w http.ResponseWriter, r *http.Request) {
	h, err := muxHandle(r)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	s.eng.Unload(h)
	webutils.WriteJson(w, "unloaded")
}

// handlerUploadModel accepts a multipart POST with a .gltf/.glb under the
// "model" key. The upload lands in a temp file so buffer URIs embedded as
// data URIs resolve the same way they do for on-disk assets.
func (s *server) handlerUploadModel(w http.ResponseWriter, r *http.Request) {
	data, name, err := webutils.ReadFormFile(r, "model")
	if err != nil {
		webutils.WriteError(w, err)
		return
	}

	tmp, err := ioutil.TempFile("", "animview-upload-*"+filepath.Ext(name))
	if err != nil {
		webutils.WriteError(w, errors.Wrapf(err, "Failed to stage upload"))
		return
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		webutils.WriteError(w, errors.Wrapf(err, "Failed to stage upload"))
		return
	}
	tmp.Close()

	h := s.eng.Load(tmp.Name())
	if h == rig.HandleInvalid {
		webutils.WriteError(w, errors.Errorf("failed to load %q", name))
		return
	}
	webutils.WriteJson(w, h)
}

func (s *server) handlerDumpModel(w http.ResponseWriter, r *http.Request) {
	h, err := muxHandle(r)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	dump, ok := s.eng.DumpModel(h)
	if !ok {
		webutils.WriteError(w, errors.Errorf("model %d not found", h))
		return
	}
	webutils.WriteFile(w, strings.NewReader(dump), "model_"+mux.Vars(r)["handle"]+".txt")
}
