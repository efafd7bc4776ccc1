package api

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/fentz26/tracker/internal/manager"
	"github.com/fentz26/tracker/internal/models"
)

// TimeLayout is the wire format for start and end times, always UTC.
const TimeLayout = "15:04 02.01.2006"

// ItemJSON is the wire form of a task, epic or subtask. Durations are whole
// minutes. Absent times and durations are sent as null.
type ItemJSON struct {
	ID          int           `json:"id"`
	Type        models.Kind   `json:"type"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Status      models.Status `json:"status"`
	StartTime   *string       `json:"start_time"`
	Duration    *int64        `json:"duration"`
	EndTime     *string       `json:"end_time"`
	EpicID      int           `json:"epic_id,omitempty"`
	Subtasks    []int         `json:"subtasks,omitempty"`
}

// ItemRequest is the body accepted by POST. Fields a kind does not use are
// ignored, so an epic request carrying status or times only changes its
// name and description.
type ItemRequest struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Status      models.Status `json:"status"`
	StartTime   *string       `json:"start_time"`
	Duration    *int64        `json:"duration"`
	EpicID      int           `json:"epic_id"`
}

// MessageResponse acknowledges a mutation.
type MessageResponse struct {
	Message string `json:"message"`
	ID      int    `json:"id,omitempty"`
}

// --- Encoding ---

// EncodeItem converts any item into its wire form.
func EncodeItem(it models.Item) ItemJSON {
	switch v := it.(type) {
	case *models.Task:
		return encodeTask(v, models.KindTask, v.EndTime())
	case *models.Epic:
		out := encodeTask(&v.Task, models.KindEpic, v.EndTime())
		out.Subtasks = v.SubtaskIDs
		return out
	case *models.Subtask:
		out := encodeTask(&v.Task, models.KindSubtask, v.EndTime())
		out.EpicID = v.EpicID
		return out
	}
	return ItemJSON{ID: it.ItemID(), Type: it.ItemKind()}
}

// EncodeItems converts a slice of items, never returning nil.
func EncodeItems(items []models.Item) []ItemJSON {
	out := make([]ItemJSON, 0, len(items))
	for _, it := range items {
		out = append(out, EncodeItem(it))
	}
	return out
}

func encodeTask(t *models.Task, kind models.Kind, end *time.Time) ItemJSON {
	out := ItemJSON{
		ID:          t.ID,
		Type:        kind,
		Name:        t.Name,
		Description: t.Description,
		Status:      t.Status,
		StartTime:   formatTime(t.StartTime),
		EndTime:     formatTime(end),
	}
	if t.Duration != nil {
		minutes := int64(*t.Duration / time.Minute)
		out.Duration = &minutes
	}
	return out
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(TimeLayout)
	return &s
}

// --- Decoding ---

// maxMinutes is the largest minute count a time.Duration can hold.
const maxMinutes = math.MaxInt64 / int64(time.Minute)

// Task builds a task from the request. Status and window validation is
// left to the manager; only syntax is checked here.
func (r ItemRequest) Task() (models.Task, error) {
	t := models.Task{Name: r.Name, Description: r.Description, Status: r.Status}
	if r.StartTime != nil {
		start, err := time.ParseInLocation(TimeLayout, *r.StartTime, time.UTC)
		if err != nil {
			return t, fmt.Errorf("%w: start_time %q: want %q", manager.ErrMalformedInput, *r.StartTime, TimeLayout)
		}
		t.StartTime = &start
	}
	if r.Duration != nil {
		if *r.Duration > maxMinutes || *r.Duration < -maxMinutes {
			return t, fmt.Errorf("%w: duration %d minutes out of range", manager.ErrMalformedInput, *r.Duration)
		}
		d := time.Duration(*r.Duration) * time.Minute
		t.Duration = &d
	}
	return t, nil
}

// Subtask builds a subtask owned by r.EpicID.
func (r ItemRequest) Subtask() (models.Subtask, error) {
	t, err := r.Task()
	if err != nil {
		return models.Subtask{}, err
	}
	return models.Subtask{Task: t, EpicID: r.EpicID}, nil
}

// Epic keeps only the caller-settable fields.
func (r ItemRequest) Epic() models.Epic {
	return models.NewEpic(r.Name, r.Description)
}

func decodeRequest(body io.Reader) (ItemRequest, error) {
	var req ItemRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		return req, fmt.Errorf("%w: %v", manager.ErrMalformedInput, err)
	}
	return req, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
