package backendtest

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type doc map[string]any

func (d doc) str(key string) string {
	v, _ := d[key].(string)
	return v
}

// day is the YYYY-MM-DD prefix of the record's date.
func (d doc) day() string {
	date := d.str("date")
	if len(date) > 10 {
		date = date[:10]
	}
	return date
}

func clone(d doc) doc {
	out := make(doc, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

func decodeDoc(r *http.Request) (doc, error) {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	var d doc
	if err := dec.Decode(&d); err != nil {
		return nil, err
	}
	return d, nil
}

// decodeBatch reads a {materials: [...]} create body.
func decodeBatch(r *http.Request) ([]doc, error) {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	var body struct {
		Materials []doc `json:"materials"`
	}
	if err := dec.Decode(&body); err != nil {
		return nil, err
	}
	return body.Materials, nil
}

// SeedMaterial adds a catalog entry. Prices may be numbers or strings.
func (s *Server) SeedMaterial(name, unit string, materialPrice, laborPrice any) {
	s.mu.Lock()
	s.materials = append(s.materials, doc{
		"_id":           uuid.NewString(),
		"materialName":  name,
		"unit":          unit,
		"materialPrice": materialPrice,
		"laborPrice":    laborPrice,
	})
	s.mu.Unlock()
}

// SeedPanel adds a panel/circuit row.
func (s *Server) SeedPanel(name, circuit string) {
	s.mu.Lock()
	s.panels = append(s.panels, doc{"_id": uuid.NewString(), "panelName": name, "circuit": circuit})
	s.mu.Unlock()
}

// SeedDailyReport stores a report and returns its id.
func (s *Server) SeedDailyReport(fields map[string]any) string {
	return s.seed(&s.reports, fields)
}

// SeedReceived stores a delivery and returns its id.
func (s *Server) SeedReceived(fields map[string]any) string {
	return s.seed(&s.received, fields)
}

// SeedTotalPrice stores a priced line and returns its id.
func (s *Server) SeedTotalPrice(fields map[string]any) string {
	return s.seed(&s.totalPrices, fields)
}

func (s *Server) seed(coll *[]doc, fields map[string]any) string {
	d := clone(fields)
	id := uuid.NewString()
	d["_id"] = id
	s.mu.Lock()
	*coll = append(*coll, d)
	s.mu.Unlock()
	return id
}

// Materials returns a snapshot of the material catalog documents.
func (s *Server) Materials() []map[string]any { return s.snapshot(&s.materials) }

// Panels returns a snapshot of the panel rows.
func (s *Server) Panels() []map[string]any { return s.snapshot(&s.panels) }

// DailyReports returns a snapshot of stored reports.
func (s *Server) DailyReports() []map[string]any { return s.snapshot(&s.reports) }

// ReceivedItems returns a snapshot of stored deliveries.
func (s *Server) ReceivedItems() []map[string]any { return s.snapshot(&s.received) }

// TotalPrices returns a snapshot of stored priced lines.
func (s *Server) TotalPrices() []map[string]any { return s.snapshot(&s.totalPrices) }

func (s *Server) snapshot(coll *[]doc) []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]any, 0, len(*coll))
	for _, d := range *coll {
		out = append(out, clone(d))
	}
	return out
}

func (s *Server) writeList(w http.ResponseWriter, key string, items []doc) {
	if items == nil {
		items = []doc{}
	}
	s.mu.Lock()
	wrap := s.wrapLists
	s.mu.Unlock()
	if wrap {
		writeJSON(w, http.StatusOK, map[string]any{key: items})
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) filter(coll *[]doc, keep func(doc) bool) []doc {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []doc
	for _, d := range *coll {
		if keep == nil || keep(d) {
			out = append(out, clone(d))
		}
	}
	return out
}

func inRange(start, end string) func(doc) bool {
	return func(d doc) bool {
		day := d.day()
		return day >= start && day <= end
	}
}

// namedRoutes serves a catalog keyed by nameField with PUT carrying
// originalField.
func (s *Server) namedRoutes(mux *http.ServeMux, path, key, nameField, originalField string, coll *[]doc) {
	mux.HandleFunc("GET "+path, s.authed(func(w http.ResponseWriter, r *http.Request, _ Account) {
		s.writeList(w, key, s.filter(coll, nil))
	}))
	mux.HandleFunc("POST "+path, s.authed(func(w http.ResponseWriter, r *http.Request, _ Account) {
		d, err := decodeDoc(r)
		if err != nil || strings.TrimSpace(d.str(nameField)) == "" {
			writeError(w, http.StatusBadRequest, nameField+" is required")
			return
		}
		d["_id"] = uuid.NewString()
		s.mu.Lock()
		*coll = append(*coll, d)
		s.mu.Unlock()
		writeJSON(w, http.StatusCreated, d)
	}, "admin"))
	mux.HandleFunc("PUT "+path, s.authed(func(w http.ResponseWriter, r *http.Request, _ Account) {
		d, err := decodeDoc(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		original := d.str(originalField)
		delete(d, originalField)
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, existing := range *coll {
			if existing.str(nameField) == original {
				d["_id"] = existing["_id"]
				(*coll)[i] = d
				writeJSON(w, http.StatusOK, d)
				return
			}
		}
		writeError(w, http.StatusNotFound, "Not found")
	}, "admin"))
	mux.HandleFunc("DELETE "+path+"/{name}", s.authed(func(w http.ResponseWriter, r *http.Request, _ Account) {
		name := r.PathValue("name")
		s.mu.Lock()
		defer s.mu.Unlock()
		kept := (*coll)[:0]
		removed := 0
		for _, d := range *coll {
			if d.str(nameField) == name {
				removed++
				continue
			}
			kept = append(kept, d)
		}
		*coll = kept
		if removed == 0 {
			writeError(w, http.StatusNotFound, "Not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": removed})
	}, "admin"))
}

func (s *Server) catalogRoutes(mux *http.ServeMux) {
	s.namedRoutes(mux, "/api/user/materials", "materials", "materialName", "originalMaterialName", &s.materials)
	s.namedRoutes(mux, "/api/user/panels", "panels", "panelName", "originalPanelName", &s.panels)
}

// datedRoutes serves an id keyed collection with date and optional range
// queries.
func (s *Server) datedRoutes(mux *http.ServeMux, path, key string, coll *[]doc, withRange bool) {
	mux.HandleFunc("GET "+path, s.authed(func(w http.ResponseWriter, r *http.Request, _ Account) {
		s.writeList(w, key, s.filter(coll, nil))
	}))
	mux.HandleFunc("GET "+path+"/date/{date}", s.authed(func(w http.ResponseWriter, r *http.Request, _ Account) {
		date := r.PathValue("date")
		s.writeList(w, key, s.filter(coll, func(d doc) bool { return d.day() == date }))
	}))
	if withRange {
		mux.HandleFunc("GET "+path+"/range", s.authed(func(w http.ResponseWriter, r *http.Request, _ Account) {
			start, end := r.URL.Query().Get("start"), r.URL.Query().Get("end")
			if start == "" || end == "" {
				writeError(w, http.StatusBadRequest, "start and end are required")
				return
			}
			s.writeList(w, key, s.filter(coll, inRange(start, end)))
		}))
	}
	mux.HandleFunc("POST "+path, s.authed(func(w http.ResponseWriter, r *http.Request, _ Account) {
		items, err := decodeBatch(r)
		if err != nil || len(items) == 0 {
			writeError(w, http.StatusBadRequest, "materials are required")
			return
		}
		s.mu.Lock()
		for _, d := range items {
			d["_id"] = uuid.NewString()
			*coll = append(*coll, d)
		}
		s.mu.Unlock()
		writeJSON(w, http.StatusCreated, map[string]any{key: items})
	}))
	mux.HandleFunc("PUT "+path+"/{id}", s.authed(func(w http.ResponseWriter, r *http.Request, _ Account) {
		d, err := decodeDoc(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		id := r.PathValue("id")
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, existing := range *coll {
			if existing.str("_id") == id {
				d["_id"] = id
				(*coll)[i] = d
				writeJSON(w, http.StatusOK, d)
				return
			}
		}
		writeError(w, http.StatusNotFound, "Not found")
	}))
	mux.HandleFunc("DELETE "+path+"/{id}", s.authed(func(w http.ResponseWriter, r *http.Request, _ Account) {
		id := r.PathValue("id")
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, existing := range *coll {
			if existing.str("_id") == id {
				*coll = append((*coll)[:i], (*coll)[i+1:]...)
				writeJSON(w, http.StatusOK, map[string]any{"deleted": 1})
				return
			}
		}
		writeError(w, http.StatusNotFound, "Not found")
	}))
}

func (s *Server) recordRoutes(mux *http.ServeMux) {
	s.datedRoutes(mux, "/api/user/daily-reports", "reports", &s.reports, true)
	s.datedRoutes(mux, "/api/user/received", "received", &s.received, false)
	s.datedRoutes(mux, "/api/user/total-prices", "prices", &s.totalPrices, true)
}

// handleManagerTotals always wraps its answer as {prices: [...]}.
func (s *Server) handleManagerTotals(w http.ResponseWriter, r *http.Request, _ Account) {
	if r.Header.Get("X-Site") == "" || r.Header.Get("X-Company") == "" {
		writeError(w, http.StatusBadRequest, "X-Site and X-Company headers are required")
		return
	}
	start, end := r.URL.Query().Get("start"), r.URL.Query().Get("end")
	if start == "" || end == "" {
		writeError(w, http.StatusBadRequest, "start and end are required")
		return
	}
	items := s.filter(&s.totalPrices, inRange(start, end))
	if items == nil {
		items = []doc{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"prices": items})
}
