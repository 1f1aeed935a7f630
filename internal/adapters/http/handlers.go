package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/jobrunner/waypost/internal/domain"
)

// mvtContentType is the registered media type for Mapbox Vector Tiles.
const mvtContentType = "application/vnd.mapbox-vector-tile"

// maxUploadBytes bounds route upload bodies.
const maxUploadBytes = 16 << 20

// handleHealth returns detailed health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	details := s.health.Check(r.Context())

	status := http.StatusOK
	if !details.Healthy {
		status = http.StatusServiceUnavailable
	}

	s.writeJSON(w, status, map[string]interface{}{
		"status":     boolToStatus(details.Healthy),
		"components": details.Components,
	})
}

// geoJSONLineString is the GeoJSON geometry accepted on route creation.
type geoJSONLineString struct {
	Type        string      `json:"type"`
	Coordinates [][]float64 `json:"coordinates"`
}

// createRouteRequest is the JSON body for route registration. The
// geometry comes as a GeoJSON LineString; a bare coordinate list is
// accepted too.
type createRouteRequest struct {
	Name        string             `json:"name"`
	GeoJSON     *geoJSONLineString `json:"geojson"`
	Coordinates [][]float64        `json:"coordinates"`
}

// handleCreateRoute registers a route from a JSON body, a multipart GPX
// upload ("gpx_file", with "file" as an alias) or a "geojson" form
// field.
func (s *Server) handleCreateRoute(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	var (
		name string
		line domain.LineString
		err  error
	)

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		name, line, err = s.parseRouteUpload(r)
	} else {
		name, line, err = s.parseRouteJSON(r)
	}
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	route, err := s.routes.Create(r.Context(), name, line)
	if err != nil {
		s.handleServiceError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"route_id": route.ID,
		"name":     route.Name,
		"points":   len(route.Geometry),
	})
}

func (s *Server) parseRouteJSON(r *http.Request) (string, domain.LineString, error) {
	var req createRouteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return "", nil, errors.New("invalid JSON body")
	}

	coords := req.Coordinates
	if req.GeoJSON != nil {
		if req.GeoJSON.Type != "LineString" {
			return "", nil, errors.New("geojson type must be LineString")
		}
		coords = req.GeoJSON.Coordinates
	}

	line, err := domain.LineStringFromCoordinates(coords)
	if err != nil {
		return "", nil, err
	}
	return req.Name, line, nil
}

func (s *Server) parseRouteUpload(r *http.Request) (string, domain.LineString, error) {
	file, _, err := r.FormFile("gpx_file")
	if err != nil {
		file, _, err = r.FormFile("file")
	}
	if err != nil {
		if raw := r.FormValue("geojson"); raw != "" {
			return parseGeoJSONForm(r.FormValue("name"), raw)
		}
		return "", nil, errors.New("provide a GPX upload or a geojson form field")
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", nil, errors.New("reading upload failed")
	}

	name, line, err := s.codec.Decode(data)
	if err != nil {
		return "", nil, err
	}
	if formName := r.FormValue("name"); formName != "" {
		name = formName
	}
	if name == "" {
		name = "Uploaded route"
	}
	return name, line, nil
}

func parseGeoJSONForm(name, raw string) (string, domain.LineString, error) {
	var geom geoJSONLineString
	if err := json.Unmarshal([]byte(raw), &geom); err != nil {
		return "", nil, errors.New("invalid GeoJSON in form field")
	}
	if geom.Type != "LineString" {
		return "", nil, errors.New("geojson type must be LineString")
	}

	line, err := domain.LineStringFromCoordinates(geom.Coordinates)
	if err != nil {
		return "", nil, err
	}
	if name == "" {
		name = "Route"
	}
	return name, line, nil
}

// handleSearch answers buffered amenity searches.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	routeID := q.Get("route_id")
	if routeID == "" {
		s.writeError(w, http.StatusBadRequest, "route_id is required")
		return
	}

	radius, err := strconv.ParseFloat(q.Get("radius_m"), 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid radius_m parameter")
		return
	}

	filters, err := parseFilters(q.Get("filters"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	response, err := s.searcher.Search(r.Context(), routeID, radius, filters)
	if err != nil {
		s.handleServiceError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, response)
}

// exportRequest is the JSON body for export submission.
type exportRequest struct {
	RouteID  string   `json:"route_id"`
	RadiusM  float64  `json:"radius_m"`
	Filters  []string `json:"filters,omitempty"`
	POIIDs   []string `json:"poi_ids,omitempty"`
}

// handleSubmitExport enqueues an asynchronous GPX export.
func (s *Server) handleSubmitExport(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	jobID, err := s.exports.Submit(r.Context(), domain.ExportRequest{
		RouteID:      req.RouteID,
		RadiusMeters: req.RadiusM,
		Filters:      req.Filters,
		POIIDs:       req.POIIDs,
	})
	if err != nil {
		s.handleServiceError(w, err)
		return
	}

	s.writeJSON(w, http.StatusAccepted, map[string]string{
		"job_id": jobID,
		"status": string(domain.JobQueued),
	})
}

// handleExportStatus reports the current state of an export job.
func (s *Server) handleExportStatus(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobID"]

	job, err := s.exports.Status(r.Context(), jobID)
	if err != nil {
		s.handleServiceError(w, err)
		return
	}

	resp := map[string]interface{}{
		"job_id":      job.ID,
		"status":      string(job.Status),
		"enqueued_at": job.EnqueuedAt,
	}
	if job.StartedAt != nil {
		resp["started_at"] = job.StartedAt
	}
	if job.CompletedAt != nil {
		resp["completed_at"] = job.CompletedAt
	}
	if job.FileURL != "" {
		resp["file_url"] = job.FileURL
	}
	if job.ErrorDetail != "" {
		resp["error"] = job.ErrorDetail
	}

	s.writeJSON(w, http.StatusOK, resp)
}

// handleTile serves amenity vector tiles.
func (s *Server) handleTile(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	z, errZ := strconv.Atoi(vars["z"])
	x, errX := strconv.Atoi(vars["x"])
	y, errY := strconv.Atoi(vars["y"])
	if errZ != nil || errX != nil || errY != nil {
		s.writeError(w, http.StatusBadRequest, "invalid tile address")
		return
	}

	filters, err := parseFilters(r.URL.Query().Get("filters"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, err := s.tiles.RenderTile(r.Context(), z, x, y, filters)
	if err != nil {
		s.handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", mvtContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleFile streams an exported track file.
func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	filename := path.Base(mux.Vars(r)["filename"])
	if filename == "." || filename == "/" || !strings.HasSuffix(filename, ".gpx") {
		s.writeError(w, http.StatusBadRequest, "invalid file name")
		return
	}

	reader, err := s.files.GetReader(r.Context(), filename)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "File not found")
		return
	}
	defer func() { _ = reader.Close() }()

	w.Header().Set("Content-Type", "application/gpx+xml")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	_, _ = io.Copy(w, reader)
}

// handleOpenAPI returns the OpenAPI specification.
func (s *Server) handleOpenAPI(w http.ResponseWriter, _ *http.Request) {
	spec, err := openAPIDocument()
	if err != nil {
		s.logger.Error("failed to get OpenAPI spec", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Failed to load OpenAPI specification")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(spec)
}

// parseFilters accepts either a JSON array ("[\"cafe\",\"fuel\"]") or a
// comma-separated list ("cafe,fuel").
func parseFilters(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	if strings.HasPrefix(raw, "[") {
		var filters []string
		if err := json.Unmarshal([]byte(raw), &filters); err != nil {
			return nil, errors.New("invalid filters parameter: malformed JSON array")
		}
		return filters, nil
	}

	return strings.Split(raw, ","), nil
}

// handleServiceError maps domain errors to HTTP status codes.
func (s *Server) handleServiceError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		s.writeError(w, http.StatusBadRequest, validationErr.Message)
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnavailable):
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.logger.Error("request failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Internal error")
	}
}

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]interface{}{
		"error":   http.StatusText(status),
		"message": message,
	})
}

func boolToStatus(b bool) string {
	if b {
		return "ok"
	}
	return "unhealthy"
}
