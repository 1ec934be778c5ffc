package http

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"ledger/internal/backup"
	"ledger/internal/bundle"
)

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	doc, err := s.deps.Ledger.Export(r.Context(), userID(r))
	if err != nil {
		ServiceError(w, r, err)
		return
	}
	data, err := bundle.Marshal(doc)
	if err != nil {
		ServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="%s"`, bundle.BackupFileName(doc.ExportDate)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleImport replaces the user's data with the posted backup document.
// Warnings for unresolved category references come back in the summary.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxImportBytes)
	summary, err := s.deps.Ledger.ReconcileJSON(r.Context(), userID(r), body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			ErrorResponse(r.Context(), http.StatusRequestEntityTooLarge, "import document too large").Write(w)
			return
		}
		ServiceError(w, r, err)
		return
	}
	NewJSONResponse().Body(summary).Write(w)
}

// handleBackup stores a backup of the user in the configured sink.
func (s *Server) handleBackup(w http.ResponseWriter, r *http.Request) {
	if s.deps.Backups == nil {
		ErrorResponse(r.Context(), http.StatusServiceUnavailable, "backup sink not configured").Write(w)
		return
	}
	location, err := backup.Run(r.Context(), s.deps.Ledger, s.deps.Backups, userID(r), time.Now().UTC())
	if err != nil {
		ServiceError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(map[string]string{"location": location}).Write(w)
}
