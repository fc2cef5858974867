// Package web is the debug viewer: a small HTTP surface over the engine
// for inspecting loaded rigs, driving clip playback and streaming status
// events to a browser.
package web

import (
	"log"
	"net/http"
	"os"
	"path"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/mirelat/animview/engine"
	"github.com/mirelat/animview/status"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func StartServer(addr string, eng *engine.Engine, webPath string) error {
	r := newRouter(&server{eng: eng}, webPath)

	h := handlers.LoggingHandler(os.Stdout, handlers.RecoveryHandler()(r))

	log.Printf("[web] Starting server %v", addr)

	return http.ListenAndServe(addr, h)
}

func newRouter(s *server, webPath string) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/json/models", s.handlerModels)
	r.HandleFunc("/json/model/{handle}", s.handlerModel)
	r.HandleFunc("/json/model/{handle}/pose", s.handlerModelPose)
	r.HandleFunc("/action/model/{handle}/set/{clip}", s.handlerSetClip)
	r.HandleFunc("/action/model/{handle}/blend/{clip}", s.handlerBlendClip)
	r.HandleFunc("/action/model/{handle}/stop", s.handlerStopClip)
	r.HandleFunc("/action/model/{handle}/unload", s.handlerUnload)
	r.HandleFunc("/upload/model", s.handlerUploadModel)
	r.HandleFunc("/dump/model/{handle}", s.handlerDumpModel)
	r.HandleFunc("/ws/status", s.handlerStatusWs)

	r.PathPrefix("/").Handler(http.FileServer(http.Dir(path.Join(webPath, "data"))))

	return r
}

type server struct {
	eng *engine.Engine
}

func (s *server) handlerStatusWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[web] ws upgrade error: %v", err)
		return
	}
	status.NewClient(conn)
}
