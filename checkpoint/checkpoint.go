// Package checkpoint persists rate-search state so long searches can
// resume after an interruption.
package checkpoint

import (
	"encoding/json"
	"time"

	"github.com/op/go-logging"

	bolt "go.etcd.io/bbolt"
)

// log is the global logging variable.
var log = logging.MustGetLogger("checkpoint")

// main is the bucket holding all checkpoints.
var main = []byte("main")

// State is the persisted search state.
type State struct {
	// Rates is the best rate vector so far.
	Rates []float64
	// Weights are the full mixture weights, nil for plain searches.
	Weights []float64
	// Score is the posterior score of Rates.
	Score float64
	// Runs counts completed randomized restarts.
	Runs int
	// Final marks a finished search.
	Final bool
}

// IO reads and writes the checkpoint of one search, rate-limited by a
// minimum interval between saves.
type IO struct {
	db      *bolt.DB
	key     []byte
	last    time.Time
	seconds float64
}

// NewIO creates a checkpoint handle. A nil database disables all
// operations.
func NewIO(db *bolt.DB, key []byte, seconds float64) *IO {
	return &IO{db: db, key: key, seconds: seconds}
}

// Save stores the state. The save timestamp advances even when the
// write fails so a broken database is not hammered.
func (s *IO) Save(state *State) error {
	s.SetNow()
	data, err := json.Marshal(state)
	if err != nil {
		log.Error("Error serializing checkpoint", err)
		return err
	}
	if err = saveData(s.db, s.key, data); err != nil {
		log.Error("Error saving checkpoint", err)
	}
	return err
}

// Load returns the stored state, or nil if there is none.
func (s *IO) Load() (*State, error) {
	b, err := loadData(s.db, s.key)
	if err != nil || b == nil {
		return nil, err
	}

	var state *State
	if err = json.Unmarshal(b, &state); err != nil {
		return nil, err
	}
	if state == nil || len(state.Rates) == 0 {
		return nil, nil
	}

	if state.Final {
		log.Noticef("Found finished search checkpoint (runs=%v, score=%v)", state.Runs, state.Score)
	} else {
		log.Noticef("Found unfinished search checkpoint (runs=%v, score=%v)", state.Runs, state.Score)
	}
	return state, nil
}

// Old returns true if the last save is older than the save interval.
func (s *IO) Old() bool {
	return time.Since(s.last).Seconds() > s.seconds
}

// SetNow sets the last save time to now.
func (s *IO) SetNow() {
	s.last = time.Now()
}

func saveData(db *bolt.DB, key, data []byte) error {
	if db == nil {
		return nil
	}
	return db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(main)
		if err != nil {
			return err
		}
		return b.Put(key, data)
	})
}

func loadData(db *bolt.DB, key []byte) ([]byte, error) {
	var data []byte
	if db == nil {
		return nil, nil
	}
	err := db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(main)
		if b == nil {
			return nil
		}
		if v := b.Get(key); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}
