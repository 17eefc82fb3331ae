package httpserver

import (
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/phenrril/storeadmin/internal/ingest"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// fileKind clasifica el archivo subido. Los .xls (BIFF) no se pueden leer
// y se rechazan con un mensaje propio.
func fileKind(fh *multipart.FileHeader) string {
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	mt, _, _ := mime.ParseMediaType(fh.Header.Get("Content-Type"))
	switch {
	case ext == ".xls":
		return "xls"
	case ext == ".xlsx" || mt == xlsxMIME:
		return "xlsx"
	case mt == "application/vnd.ms-excel":
		return "xls"
	}
	return ""
}

func (s *Server) apiUploadExcel(w http.ResponseWriter, r *http.Request) {
	// margen para los encabezados del multipart
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+(1<<20))
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			uploadError(w, http.StatusBadRequest, "El archivo supera el tamaño máximo permitido", err.Error())
			return
		}
		uploadError(w, http.StatusBadRequest, "Formulario inválido", err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		uploadError(w, http.StatusBadRequest, "No se recibió ningún archivo", "campo 'file' requerido")
		return
	}
	fh := files[0]
	switch fileKind(fh) {
	case "xlsx":
	case "xls":
		uploadError(w, http.StatusBadRequest, "Formato .xls no soportado", "solo se aceptan archivos .xlsx; guardá el libro como .xlsx")
		return
	default:
		uploadError(w, http.StatusBadRequest, "Tipo de archivo no permitido", "se esperaba un archivo .xlsx")
		return
	}
	if fh.Size > s.maxUpload {
		uploadError(w, http.StatusBadRequest, "El archivo supera el tamaño máximo permitido", fh.Filename)
		return
	}
	f, err := fh.Open()
	if err != nil {
		uploadError(w, http.StatusBadRequest, "No se pudo abrir el archivo", err.Error())
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, s.maxUpload+1))
	if err != nil {
		uploadError(w, http.StatusBadRequest, "No se pudo leer el archivo", err.Error())
		return
	}

	res := s.ingest.Process(r.Context(), fh.Filename, data)
	if res.Success {
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": res.Message,
			"stats":   res.Counts,
		})
		return
	}

	switch ingest.KindOf(res.Err) {
	case ingest.KindInput:
		uploadError(w, http.StatusBadRequest, res.Message, res.Err.Error())
	case ingest.KindValidation, ingest.KindReference:
		uploadError(w, http.StatusUnprocessableEntity, res.Message, res.Err.Error())
	default:
		uploadError(w, http.StatusInternalServerError, res.Message, "error interno procesando el archivo")
	}
}

func (s *Server) apiUploadTemplate(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", xlsxMIME)
	w.Header().Set("Content-Disposition", "attachment; filename=plantilla_carga.xlsx")
	if err := ingest.WriteTemplate(w, s.ingest.Layout); err != nil {
		log.Error().Err(err).Msg("plantilla")
		http.Error(w, "template", http.StatusInternalServerError)
	}
}

func uploadError(w http.ResponseWriter, code int, msg, detail string) {
	writeJSON(w, code, map[string]any{"success": false, "message": msg, "error": detail})
}
