package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/shramsetu/backend/internal/metrics"
	"github.com/shramsetu/backend/internal/models"
)

// Default thresholds for the Job Finder.
const (
	DefaultMinScore    = 0.6
	DefaultNotifyScore = 0.8
)

// Score weights.
const (
	skillsWeight     = 0.4
	experienceWeight = 0.3
	locationWeight   = 0.3

	sameStateWeight    = 0.6
	sameDistrictWeight = 0.4
)

// Score rates how well a worker fits a job, in [0,1], rounded to two decimals.
//
// The location term compares the worker's district with the job's city.
func Score(w *models.Worker, j *models.Job) float64 {
	var skills, experience, location float64
	if len(w.Skills) > 0 {
		skills = 1
	}
	if w.ExperienceYears > 0 {
		experience = 1
	}
	if sameText(w.Location.State, j.Location.State) {
		location += sameStateWeight
	}
	if sameText(w.Location.District, j.Location.City) {
		location += sameDistrictWeight
	}
	s := skillsWeight*skills + experienceWeight*experience + locationWeight*location
	return math.Round(s*100) / 100
}

// sameText compares case-insensitively; blank values never match.
func sameText(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	return a != "" && strings.EqualFold(a, b)
}

// JobCandidateRepo lists jobs a worker could be matched to.
type JobCandidateRepo interface {
	ListActiveByState(ctx context.Context, state string) ([]*models.Job, error)
}

// WorkerCandidateRepo lists workers a job could be matched to.
type WorkerCandidateRepo interface {
	ListAvailableByState(ctx context.Context, state string) ([]*models.Worker, error)
}

type JobMatch struct {
	Job   *models.Job `json:"job"`
	Score float64     `json:"match_score"`
}

type WorkerMatch struct {
	Worker *models.Worker `json:"worker"`
	Score  float64        `json:"match_score"`
}

// Finder ranks jobs for workers and workers for jobs.
type Finder struct {
	Jobs        JobCandidateRepo
	Workers     WorkerCandidateRepo
	Notifier    Notifier
	MinScore    float64
	NotifyScore float64
	Logger      *slog.Logger
}

// NewFinder returns a Finder with the default thresholds.
func NewFinder(jobs JobCandidateRepo, workers WorkerCandidateRepo, notifier Notifier, logger *slog.Logger) *Finder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Finder{
		Jobs:        jobs,
		Workers:     workers,
		Notifier:    notifier,
		MinScore:    DefaultMinScore,
		NotifyScore: DefaultNotifyScore,
		Logger:      logger,
	}
}

// FindMatchingJobs returns active jobs in the worker's state scoring at least minScore,
// best first. limit <= 0 means no limit.
func (f *Finder) FindMatchingJobs(ctx context.Context, w *models.Worker, minScore float64, limit int) ([]JobMatch, error) {
	jobs, err := f.Jobs.ListActiveByState(ctx, w.Location.State)
	if err != nil {
		return nil, fmt.Errorf("list candidate jobs: %w", err)
	}
	out := make([]JobMatch, 0, len(jobs))
	for _, j := range jobs {
		if j.Status != models.JobStatusActive {
			continue
		}
		if s := Score(w, j); s >= minScore {
			out = append(out, JobMatch{Job: j, Score: s})
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Score > out[b].Score })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	metrics.MatchResults.WithLabelValues("jobs").Observe(float64(len(out)))
	return out, nil
}

// FindMatchingWorkers returns available workers in the job's state scoring at least minScore,
// best first. limit <= 0 means no limit.
func (f *Finder) FindMatchingWorkers(ctx context.Context, j *models.Job, minScore float64, limit int) ([]WorkerMatch, error) {
	workers, err := f.Workers.ListAvailableByState(ctx, j.Location.State)
	if err != nil {
		return nil, fmt.Errorf("list candidate workers: %w", err)
	}
	out := make([]WorkerMatch, 0, len(workers))
	for _, w := range workers {
		if !w.Available {
			continue
		}
		if s := Score(w, j); s >= minScore {
			out = append(out, WorkerMatch{Worker: w, Score: s})
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Score > out[b].Score })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	metrics.MatchResults.WithLabelValues("workers").Observe(float64(len(out)))
	return out, nil
}

// NotifyMatchingWorkers sends a job_match notification to every worker scoring at least
// NotifyScore for the job. Dispatch failures are logged and skipped. Returns how many were sent.
func (f *Finder) NotifyMatchingWorkers(ctx context.Context, j *models.Job) (int, error) {
	matches, err := f.FindMatchingWorkers(ctx, j, f.NotifyScore, 0)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, m := range matches {
		payload, _ := json.Marshal(map[string]any{
			"job_id":      j.ID,
			"job_title":   j.Title,
			"city":        j.Location.City,
			"salary":      j.Salary,
			"match_score": m.Score,
		})
		err := f.Notifier.Dispatch(ctx, models.Notification{
			RecipientID:   m.Worker.ID,
			RecipientType: models.RecipientWorker,
			EventType:     models.EventJobMatch,
			Payload:       payload,
		})
		if err != nil {
			f.Logger.Error("job match notification failed", "job_id", j.ID, "worker_id", m.Worker.ID, "error", err)
			continue
		}
		sent++
	}
	return sent, nil
}
