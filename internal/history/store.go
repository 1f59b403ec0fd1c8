// Package history persists every successful acquisition so vote counts can
// be followed over time.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"votewatch/internal/components/assert"
	"votewatch/internal/components/chrono"
	"votewatch/internal/history/db"
	"votewatch/internal/tally"
)

type Store struct {
	db   *sql.DB
	qry  *db.Queries
	time chrono.TimeAPI
}

func NewStore(database *sql.DB, timeAPI chrono.TimeAPI) Store {
	assert.NotNil(database)
	assert.NotNil(timeAPI)
	return Store{
		db:   database,
		qry:  db.New(database),
		time: timeAPI,
	}
}

// Migrate creates the tables if they do not exist yet.
func (s Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, db.Schema)
	if err != nil {
		return fmt.Errorf("migrate history: %w", err)
	}
	return nil
}

// Push stores result under runID, stamped with the current time.
func (s Store) Push(ctx context.Context, runID string, result *tally.Result) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	txqry := s.qry.WithTx(tx)

	analysis := result.Analysis
	err = txqry.CreateRun(ctx, db.CreateRunParams{
		ID:              runID,
		Time:            s.time.Now().Unix(),
		TotalCandidates: int64(analysis.TotalCandidates),
		TotalVotes:      int64(analysis.TotalVotes),
		AverageVotes:    analysis.AverageVotes,
		MaxVotes:        int64(analysis.MaxVotes),
		MinVotes:        int64(analysis.MinVotes),
	})
	if err != nil {
		return err
	}

	for _, c := range result.Candidates {
		err = txqry.CreateCandidateTally(ctx, db.CreateCandidateTallyParams{
			RunID:      runID,
			Rank:       int64(c.Rank),
			Number:     int64(c.Number),
			Name:       c.Name,
			Votes:      int64(c.Votes),
			VoteStatus: c.VoteStatus,
			ImageUrl:   c.ImageURL,
		})
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

type Run struct {
	ID              string    `json:"id"`
	Time            time.Time `json:"time"`
	TotalCandidates int       `json:"total_candidates"`
	TotalVotes      int       `json:"total_votes"`
	AverageVotes    float64   `json:"average_votes"`
	MaxVotes        int       `json:"max_votes"`
	MinVotes        int       `json:"min_votes"`
}

// Runs lists the most recent runs, newest first.
func (s Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.qry.ListRuns(ctx, int64(limit))
	if err != nil {
		return nil, err
	}
	runs := make([]Run, len(rows))
	for i, r := range rows {
		runs[i] = Run{
			ID:              r.ID,
			Time:            time.Unix(r.Time, 0),
			TotalCandidates: int(r.TotalCandidates),
			TotalVotes:      int(r.TotalVotes),
			AverageVotes:    r.AverageVotes,
			MaxVotes:        int(r.MaxVotes),
			MinVotes:        int(r.MinVotes),
		}
	}
	return runs, nil
}

// Candidates returns the ranked candidates stored for a run.
func (s Store) Candidates(ctx context.Context, runID string) ([]tally.Candidate, error) {
	rows, err := s.qry.GetRunCandidates(ctx, runID)
	if err != nil {
		return nil, err
	}
	candidates := make([]tally.Candidate, len(rows))
	for i, r := range rows {
		candidates[i] = tally.Candidate{
			Number:     int(r.Number),
			Name:       r.Name,
			Votes:      int(r.Votes),
			VoteStatus: r.VoteStatus,
			ImageURL:   r.ImageUrl,
			Rank:       int(r.Rank),
		}
	}
	return candidates, nil
}

type Point struct {
	Time   time.Time `json:"time"`
	Number int       `json:"number"`
	Votes  int       `json:"votes"`
	Rank   int       `json:"rank"`
}

// Series returns every recorded tally of the named candidate, oldest first.
func (s Store) Series(ctx context.Context, name string) ([]Point, error) {
	rows, err := s.qry.GetCandidateSeries(ctx, name)
	if err != nil {
		return nil, err
	}
	points := make([]Point, len(rows))
	for i, r := range rows {
		points[i] = Point{
			Time:   time.Unix(r.Time, 0),
			Number: int(r.Number),
			Votes:  int(r.Votes),
			Rank:   int(r.Rank),
		}
	}
	return points, nil
}

// Prune deletes runs recorded before cutoff and returns how many went.
func (s Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()
	txqry := s.qry.WithTx(tx)

	err = txqry.DeleteCandidateTalliesBefore(ctx, cutoff.Unix())
	if err != nil {
		return 0, err
	}
	deleted, err := txqry.DeleteRunsBefore(ctx, cutoff.Unix())
	if err != nil {
		return 0, err
	}
	return deleted, tx.Commit()
}
