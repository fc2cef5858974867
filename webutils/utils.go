package webutils

import (
	"encoding/json"
	"io"
	"io/ioutil"
	"log"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

func WriteFileHeaders(w http.ResponseWriter, name string) {
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", "attachment; filename=\""+name+"\"")
}

func WriteFile(w http.ResponseWriter, in io.Reader, name string) {
	WriteFileHeaders(w, name)
	io.Copy(w, in)
}

func WriteJson(w http.ResponseWriter, data interface{}) {
	res, err := json.Marshal(data)
	if err != nil {
		WriteError(w, err)
	} else {
		w.Header().Set("Content-Type", "application/json")
		WriteResult(w, res)
	}
}

// ReadFormFile pulls one uploaded file out of a multipart POST.
func ReadFormFile(r *http.Request, formFileKey string) ([]byte, string, error) {
	if strings.ToUpper(r.Method) != "POST" {
		return nil, "", errors.Errorf("Invalid http method %q", r.Method)
	}

	f, header, err := r.FormFile(formFileKey)
	if err != nil {
		return nil, "", errors.Wrapf(err, "Failed to get file")
	}
	defer f.Close()

	data, err := ioutil.ReadAll(f)
	if err != nil {
		return nil, "", errors.Wrapf(err, "Failed to read")
	}

	return data, header.Filename, nil
}

func WriteResult(w http.ResponseWriter, data []byte) {
	if _, err := w.Write(data); err != nil {
		log.Printf("Error when writing response: %v", err)
	}
}

func WriteError(w http.ResponseWriter, err error) {
	type jError struct {
		Error string `json:"error"`
	}
	data, merr := json.Marshal(&jError{Error: err.Error()})
	if merr != nil {
		log.Printf("Error marshaling error %v: %v", err, merr)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	WriteResult(w, data)
}
