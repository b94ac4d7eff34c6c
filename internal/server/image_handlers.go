package server

import (
	"bytes"
	"errors"
	"image"
	"io"
	"net/http"
	"strconv"

	"github.com/MeKo-Tech/notecrop/internal/pipeline"
	"github.com/MeKo-Tech/notecrop/internal/utils"
)

// Output formats of POST /detect/image.
const (
	formatJSON = "json"
	formatJPEG = "jpeg"
)

// detectImageHandler handles multipart uploads in the "image" field. With
// format=jpeg the cropped region is returned as image/jpeg.
func (s *Server) detectImageHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = formatJSON
	}
	if format != formatJSON && format != formatJPEG {
		s.writeErrorResponse(w, "Unsupported format: "+format, http.StatusBadRequest)
		return
	}

	img, ok := s.parseImageUpload(w, r)
	if !ok {
		detectRequestsTotal.WithLabelValues("image", "error").Inc()
		return
	}

	req, err := requestFromForm(r)
	if err != nil {
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	pl, err := s.pipelineFor(req)
	if err != nil {
		s.writeDetectError(w, err)
		return
	}

	if format == formatJPEG {
		s.writeJPEGResponse(w, r, pl, img)
		return
	}

	resp, err := s.detect(r.Context(), pl, img, "image")
	if err != nil {
		s.writeDetectError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeJPEGResponse(w http.ResponseWriter, r *http.Request, pl *pipeline.Pipeline, img image.Image) {
	res, err := pl.ProcessImageContext(r.Context(), img)
	if err != nil {
		detectRequestsTotal.WithLabelValues("image", "error").Inc()
		s.writeDetectError(w, err)
		return
	}
	if !res.Found {
		detectRequestsTotal.WithLabelValues("image", "not_found").Inc()
		s.writeJSON(w, http.StatusNotFound, DetectResponse{
			Success: true, Found: false, Message: notFoundMessage + ": " + res.Reason,
		})
		return
	}
	detectRequestsTotal.WithLabelValues("image", "found").Inc()

	data, err := utils.EncodeJPEG(res.ROI, s.jpegQuality)
	if err != nil {
		s.writeErrorResponse(w, "Failed to encode region", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("X-Region", strconv.Itoa(res.Box.X)+","+strconv.Itoa(res.Box.Y)+","+
		strconv.Itoa(res.Box.Width)+","+strconv.Itoa(res.Box.Height))
	_, _ = w.Write(data)
}

// parseImageUpload reads and decodes the uploaded image. On failure the
// error response has been written.
func (s *Server) parseImageUpload(w http.ResponseWriter, r *http.Request) (image.Image, bool) {
	limit := s.maxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(limit); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.writeErrorResponse(w, "File too large", http.StatusRequestEntityTooLarge)
		} else {
			s.writeErrorResponse(w, "Failed to parse form data", http.StatusBadRequest)
		}
		return nil, false
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		s.writeErrorResponse(w, "No image file provided", http.StatusBadRequest)
		return nil, false
	}
	defer func() { _ = file.Close() }()

	uploadSizeBytes.Observe(float64(header.Size))

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeErrorResponse(w, "Failed to read image data", http.StatusInternalServerError)
		return nil, false
	}

	img, _, err := utils.DecodeImage(bytes.NewReader(data))
	if err != nil {
		s.writeErrorResponse(w, "Invalid image format: "+err.Error(), http.StatusBadRequest)
		return nil, false
	}
	return img, true
}

// requestFromForm reads tunable overrides from form values.
func requestFromForm(r *http.Request) (*DetectRequest, error) {
	req := &DetectRequest{}
	if v := r.FormValue("min_area"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, errors.New("invalid min_area: " + v)
		}
		req.MinArea = &n
	}
	if v := r.FormValue("max_ar_diff"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, errors.New("invalid max_ar_diff: " + v)
		}
		req.MaxARDiff = &f
	}
	if v := r.FormValue("upscale"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, errors.New("invalid upscale: " + v)
		}
		req.Upscale = &n
	}
	if v := r.FormValue("debug"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, errors.New("invalid debug: " + v)
		}
		req.Debug = &b
	}
	return req, nil
}
