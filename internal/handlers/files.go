package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/csg33k/visits-dashboard/internal/adapters/pdf"
	"github.com/csg33k/visits-dashboard/internal/adapters/xlsx"
	"github.com/csg33k/visits-dashboard/internal/dashboard"
	"github.com/csg33k/visits-dashboard/internal/domain"
	"github.com/csg33k/visits-dashboard/internal/templates"
)

// maxUpload bounds the multipart form of a processing run.
const maxUpload = 64 << 20

// exportXLSX writes the rows the current search leaves visible.
func (h *Handler) exportXLSX(w http.ResponseWriter, r *http.Request, s *dashboard.Session) {
	if !s.Page.Features.Details {
		http.NotFound(w, r)
		return
	}
	scope := s.Scope()
	summary, raw := s.Loader.Tables()
	if scope.Kind != domain.ScopeMunicipality || (summary == nil && raw == nil) {
		http.Error(w, "select a municipality first", http.StatusNotFound)
		return
	}
	var buf bytes.Buffer
	if err := xlsx.Export(&buf, summary, raw); err != nil {
		h.log.Error("xlsx export failed", "municipality", scope.Key, "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	filename := fmt.Sprintf("%s_%s.xlsx", scope.Key, h.now().Format("20060102"))
	attach(w, xlsx.ContentType, filename)
	w.Write(buf.Bytes())
}

// snapshotPDF refetches the totals so the report matches the backend at the
// time it is generated, even when a run finished since the cards loaded.
func (h *Handler) snapshotPDF(w http.ResponseWriter, r *http.Request, s *dashboard.Session) {
	if status := s.Reload(r.Context(), []dashboard.View{dashboard.ViewTotals}); status != "" {
		http.Error(w, status, http.StatusBadGateway)
		return
	}
	scope := s.Scope()
	cards := s.Loader.Cards()
	summary, _ := s.Loader.Tables()

	now := h.now()
	var buf bytes.Buffer
	err := h.report.Write(&buf, pdf.Snapshot{
		Title:       s.Page.Title,
		Scope:       scope,
		GeneratedAt: now,
		Cards:       cards,
		Summary:     summary,
	})
	if err != nil {
		h.log.Error("pdf snapshot failed", "page", s.Page.ID, "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	attach(w, "application/pdf", fmt.Sprintf("%s_%s.pdf", s.Page.ID, now.Format("20060102_1504")))
	w.Write(buf.Bytes())
}

// download sends the browser to the backend file of the current scope.
func (h *Handler) download(w http.ResponseWriter, r *http.Request, s *dashboard.Session) {
	if !s.Page.Features.Download {
		http.NotFound(w, r)
		return
	}
	scope := s.Scope()
	switch scope.Kind {
	case domain.ScopeSector:
		http.Redirect(w, r, h.api.SectorDownloadURL(scope.Key), http.StatusFound)
	case domain.ScopeMunicipality:
		http.Redirect(w, r, h.api.MunicipalityExcelURL(scope.Key), http.StatusFound)
	default:
		http.Error(w, "select a sector first", http.StatusBadRequest)
	}
}

// upload checks the workbooks of a processing run and forwards them. A
// finished run changes every view, so they are told to reload.
func (h *Handler) upload(w http.ResponseWriter, r *http.Request, s *dashboard.Session) {
	if !s.Page.Features.Upload {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		render(w, r, templates.UploadError("could not read the upload: "+err.Error()))
		return
	}
	defer r.MultipartForm.RemoveAll()

	var files []domain.Upload
	for _, field := range []string{xlsx.FieldRawToday, xlsx.FieldMinistryNew, xlsx.FieldRawPrev} {
		f, hdr, err := r.FormFile(field)
		if errors.Is(err, http.ErrMissingFile) {
			if field == xlsx.FieldRawPrev {
				continue
			}
			render(w, r, templates.UploadError(field+": file is required"))
			return
		}
		if err != nil {
			render(w, r, templates.UploadError(field+": "+err.Error()))
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			render(w, r, templates.UploadError(field+": "+err.Error()))
			return
		}
		if err := xlsx.CheckUpload(field, bytes.NewReader(data)); err != nil {
			render(w, r, templates.UploadError(err.Error()))
			return
		}
		files = append(files, domain.Upload{Field: field, Filename: hdr.Filename, Data: data})
	}

	res, err := h.api.Process(r.Context(), files)
	if err != nil {
		h.log.Warn("process run failed", "page", s.Page.ID, "err", err)
		render(w, r, templates.UploadError(dashboard.StatusMessage(err)))
		return
	}
	h.log.Info("process run finished", "run", res.RunID, "visited", res.Today.Visited, "not_visited", res.Today.NotVisited)
	w.Header().Set("HX-Trigger", templates.ScopeChangedEvent)
	render(w, r, templates.UploadResult(res, dashboard.ProcessSummary(res)))
}

func attach(w http.ResponseWriter, contentType, filename string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
}
