package http

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"sitebook/internal/backup"
	"sitebook/internal/log"
)

// handleBackup streams a zip of the ledger and settings. With ?project= only
// that project is exported.
func (s *Server) handleBackup(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.storeContext(r)
	defer cancel()

	project := sanitizeInput(r.URL.Query().Get("project"))
	var buf bytes.Buffer
	if err := s.svc.WriteBackup(ctx, &buf, project); err != nil {
		s.respondError(w, r, log.OpBackup, err)
		return
	}

	name := backup.FileName(project, s.now())
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", attachment("sitebook_backup.zip", name))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = buf.WriteTo(w)
}

// handleRestore loads an uploaded backup. An empty scope restores
// everything; otherwise only the named project is replaced.
func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			ErrorResponse(http.StatusRequestEntityTooLarge, "備份檔過大").Write(w)
			return
		}
		BadRequestError("請選擇備份檔").Write(w)
		return
	}
	file, _, err := r.FormFile("archive")
	if err != nil {
		BadRequestError("請選擇備份檔").Write(w)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		BadRequestError("備份檔讀取失敗").Write(w)
		return
	}

	ctx, cancel := s.storeContext(r)
	defer cancel()

	scope := sanitizeInput(r.FormValue("scope"))
	res, err := s.svc.Restore(ctx, data, scope)
	if err != nil {
		s.respondError(w, r, log.OpRestore, err)
		return
	}

	msg := fmt.Sprintf("已還原 %d 筆紀錄", res.Records)
	if res.Migrated {
		msg += "（設定已升級為新格式）"
	}
	s.respondOK(w, r, scope, msg, "/settings")
}
