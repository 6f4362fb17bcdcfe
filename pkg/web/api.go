package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/akfire/dispatch-relay/pkg/database"
	"github.com/akfire/dispatch-relay/pkg/dispatch"
	"github.com/akfire/dispatch-relay/pkg/history"
	"github.com/akfire/dispatch-relay/pkg/logger"
	"github.com/akfire/dispatch-relay/pkg/station"
)

const defaultArchiveLimit = 50

// API serves the operator status surface
type API struct {
	serverName  string
	directory   *station.Directory
	registry    *dispatch.Registry
	history     *history.History
	archive     *database.CallRepository // nil when archiving is disabled
	statusPosts int
	logger      *logger.Logger
}

// NewAPI creates the status API
func NewAPI(serverName string, directory *station.Directory, registry *dispatch.Registry, h *history.History, archive *database.CallRepository, statusPosts int, log *logger.Logger) *API {
	if statusPosts <= 0 {
		statusPosts = 20
	}
	return &API{
		serverName:  serverName,
		directory:   directory,
		registry:    registry,
		history:     h,
		archive:     archive,
		statusPosts: statusPosts,
		logger:      log.WithComponent("api"),
	}
}

// postStatus is one delivery record on the status surface
type postStatus struct {
	CallNumber string               `json:"callNumber"`
	SentAt     map[string]time.Time `json:"sentAt"`
	AckAt      map[string]time.Time `json:"ackAt,omitempty"`
}

// displayStatus is one registered display on the status surface
type displayStatus struct {
	Address  string       `json:"address"`
	Stations []string     `json:"stations"`
	Areas    []string     `json:"areas"`
	Since    time.Time    `json:"since"`
	Posts    []postStatus `json:"posts"`
}

// callStatus is one retained call on the status surface
type callStatus struct {
	CallNumber   string    `json:"callNumber"`
	Area         string    `json:"area"`
	CallType     string    `json:"callType"`
	DispatchCode string    `json:"dispatchCode"`
	Location     string    `json:"location,omitempty"`
	ReceivedAt   time.Time `json:"receivedAt"`
	HasRoute     bool      `json:"hasRoute"`
}

type statusResponse struct {
	Server      string          `json:"server"`
	Stations    int             `json:"stations"`
	Areas       []string        `json:"areas"`
	Displays    []displayStatus `json:"displays"`
	RecentCalls []callStatus    `json:"recentCalls"`
	Time        time.Time       `json:"time"`
}

// HandleStatus reports the registered displays, their delivery ledgers, and
// the retained call history.
func (a *API) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := statusResponse{
		Server:      a.serverName,
		Stations:    a.directory.Count(),
		Areas:       a.directory.Areas(),
		Displays:    []displayStatus{},
		RecentCalls: []callStatus{},
		Time:        time.Now(),
	}

	for _, conn := range a.registry.All() {
		d := displayStatus{
			Address:  conn.Address(),
			Stations: conn.StationIDs(),
			Areas:    conn.Areas(),
			Since:    conn.Since(),
			Posts:    []postStatus{},
		}
		for _, p := range conn.Posts(a.statusPosts) {
			d.Posts = append(d.Posts, postStatus{
				CallNumber: p.CallNumber,
				SentAt:     p.SentAt,
				AckAt:      p.AckAt,
			})
		}
		resp.Displays = append(resp.Displays, d)
	}

	for _, e := range a.history.Recent(a.statusPosts) {
		c := e.Call()
		_, hasRoute := e.Directions()
		resp.RecentCalls = append(resp.RecentCalls, callStatus{
			CallNumber:   c.CallNumber,
			Area:         c.Area,
			CallType:     c.CallType,
			DispatchCode: c.DispatchCode,
			Location:     c.Location,
			ReceivedAt:   e.ReceivedAt(),
			HasRoute:     hasRoute,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		a.logger.Warn("Failed to encode status response", logger.Error(err))
	}
}

// HandleArchive serves archived call postings. call= returns every posting
// for one call number oldest first, area= filters to one area, limit= caps
// the row count. Answers 404 when archiving is disabled.
func (a *API) HandleArchive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if a.archive == nil {
		http.Error(w, "archive disabled", http.StatusNotFound)
		return
	}

	limit := defaultArchiveLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	var (
		records []database.CallRecord
		err     error
	)
	switch {
	case r.URL.Query().Get("call") != "":
		records, err = a.archive.GetByCallNumber(r.URL.Query().Get("call"))
	case r.URL.Query().Get("area") != "":
		records, err = a.archive.GetByArea(r.URL.Query().Get("area"), limit)
	default:
		records, err = a.archive.GetRecent(limit)
	}
	if err != nil {
		a.logger.Error("Archive query failed", logger.Error(err))
		http.Error(w, "archive query failed", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []database.CallRecord{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(records); err != nil {
		a.logger.Warn("Failed to encode archive response", logger.Error(err))
	}
}
