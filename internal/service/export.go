package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"time"

	"debtboard/internal/clients"
	"debtboard/internal/domain"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

const (
	exportSetKey = "export_ids"
	exportTTL    = 20 * time.Minute
)

type ExportStatus struct {
	Key      string    `json:"key"`
	Type     string    `json:"type"`
	UserID   int64     `json:"user_id"`
	Progress float64   `json:"progress"`
	FileURL  *string   `json:"file_url"`
	Created  time.Time `json:"created_at"`
	Error    string    `json:"error,omitempty"`
}

type FileSaver interface {
	Save(ctx context.Context, fileName string, data []byte) (string, error)
	GetURL(fileName string) string
}

type ExportNotifier interface {
	NotifyExportProgress(ctx context.Context, userID int64, exportID string, progress float64, stage string) error
	NotifyExportComplete(ctx context.Context, userID int64, exportID string, url string, filename string) error
	NotifyExportFailed(ctx context.Context, userID int64, exportID string, errMsg string) error
}

// ExportService turns the summary snapshot into a downloadable XLSX file.
// Exports run in the background; progress is tracked in Redis and pushed to
// the requesting user over websocket.
type ExportService struct {
	store SnapshotStore
	redis *clients.RedisClient
	files FileSaver
	ws    ExportNotifier
}

func NewExportService(
	store SnapshotStore,
	redis *clients.RedisClient,
	files FileSaver,
	ws ExportNotifier,
) *ExportService {
	return &ExportService{
		store: store,
		redis: redis,
		files: files,
		ws:    ws,
	}
}

type summaryColumn struct {
	Header string
	Value  func(c domain.CustomerSummary) any
}

var summaryColumns = []summaryColumn{
	{"Customer", func(c domain.CustomerSummary) any { return c.CustomerName }},
	{"Customer ID", func(c domain.CustomerSummary) any { return c.CustomerID }},
	{"Created by", func(c domain.CustomerSummary) any { return c.CreatedBy }},
	{"Total amount", func(c domain.CustomerSummary) any { return c.TotalAmount }},
	{"Paid amount", func(c domain.CustomerSummary) any { return c.PaidAmount }},
	{"Remaining amount", func(c domain.CustomerSummary) any { return c.RemainingAmount }},
	{"Phones", func(c domain.CustomerSummary) any { return c.Phones }},
	{"Notes", func(c domain.CustomerSummary) any { return c.NotesCount }},
}

func (s *ExportService) saveStatus(ctx context.Context, st *ExportStatus) error {
	if s.redis == nil {
		return nil
	}

	data, err := json.Marshal(st)
	if err != nil {
		return err
	}

	if err := s.redis.Set(ctx, st.Key, string(data), exportTTL); err != nil {
		return err
	}

	return s.redis.SAdd(ctx, exportSetKey, st.Key)
}

// StartSummaryExport queues an export of the current summary snapshot and
// returns its id immediately.
func (s *ExportService) StartSummaryExport(ctx context.Context, userID int64) (string, error) {
	exportID := fmt.Sprintf("exports:%s", uuid.NewString())

	status := &ExportStatus{
		Key:      exportID,
		Type:     "summary",
		UserID:   userID,
		Progress: 0,
		Created:  time.Now(),
	}

	_ = s.saveStatus(ctx, status)

	go s.runSummaryExport(context.Background(), status)

	return exportID, nil
}

func (s *ExportService) runSummaryExport(ctx context.Context, status *ExportStatus) {
	fail := func(err error) {
		log.Printf("[EXPORT] %s failed: %v", status.Key, err)
		status.Error = err.Error()
		_ = s.saveStatus(ctx, status)
		if s.ws != nil {
			_ = s.ws.NotifyExportFailed(ctx, status.UserID, status.Key, err.Error())
		}
	}

	data, err := s.store.Get(ctx, SummarySnapshotName)
	if err != nil {
		fail(fmt.Errorf("summary snapshot unavailable: %w", err))
		return
	}

	var summary []domain.CustomerSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		fail(fmt.Errorf("summary snapshot corrupt: %w", err))
		return
	}

	f := excelize.NewFile()
	sheet := "Summary"
	f.SetSheetName(f.GetSheetName(0), sheet)

	_ = f.SetDocProps(&excelize.DocProperties{
		Creator: fmt.Sprintf("user_%d", status.UserID),
	})

	for i, col := range summaryColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, col.Header)
	}

	total := len(summary)
	chunkSize := 500

	for i, c := range summary {
		for colIdx, col := range summaryColumns {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, i+2)
			_ = f.SetCellValue(sheet, cell, col.Value(c))
		}

		if (i+1)%chunkSize == 0 || i == total-1 {
			progress := math.Round(float64(i+1) / float64(total) * 100.0)
			// 100% is reserved for a ready file URL.
			if progress >= 100 {
				progress = 95
			}

			status.Progress = progress
			_ = s.saveStatus(ctx, status)
			if s.ws != nil {
				_ = s.ws.NotifyExportProgress(ctx, status.UserID, status.Key, progress, "generating")
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		fail(fmt.Errorf("workbook generation failed: %w", err))
		return
	}

	fileName := fmt.Sprintf("summary_debts_%s.xlsx", time.Now().Format("20060102_150405"))

	saved, err := s.files.Save(ctx, fileName, buf.Bytes())
	if err != nil {
		fail(fmt.Errorf("file save failed: %w", err))
		return
	}

	url := s.files.GetURL(saved)
	status.FileURL = &url
	status.Progress = 100
	_ = s.saveStatus(ctx, status)

	if s.ws != nil {
		_ = s.ws.NotifyExportProgress(ctx, status.UserID, status.Key, 100, "ready")
		_ = s.ws.NotifyExportComplete(ctx, status.UserID, status.Key, url, fileName)
	}
}

// GetExport returns the status of one export owned by the given user.
func (s *ExportService) GetExport(ctx context.Context, exportID string, userID int64) (*ExportStatus, error) {
	if s.redis == nil {
		return nil, errors.New("redis client not configured")
	}

	data, err := s.redis.Get(ctx, exportID)
	if err != nil {
		return nil, errors.New("export not found")
	}

	var status ExportStatus
	if err := json.Unmarshal([]byte(data), &status); err != nil {
		return nil, fmt.Errorf("failed to parse export status: %w", err)
	}

	if status.UserID != userID {
		return nil, errors.New("export not found")
	}

	return &status, nil
}

// GetExports lists the user's exports, newest first.
func (s *ExportService) GetExports(ctx context.Context, userID int64) ([]ExportStatus, error) {
	if s.redis == nil {
		return nil, errors.New("redis client not configured")
	}

	keys, err := s.redis.SMembers(ctx, exportSetKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get export keys: %w", err)
	}

	var statuses []ExportStatus
	for _, key := range keys {
		data, err := s.redis.Get(ctx, key)
		if err != nil {
			continue
		}

		var status ExportStatus
		if err := json.Unmarshal([]byte(data), &status); err != nil {
			continue
		}

		if status.UserID == userID {
			statuses = append(statuses, status)
		}
	}

	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].Created.After(statuses[j].Created)
	})

	return statuses, nil
}
