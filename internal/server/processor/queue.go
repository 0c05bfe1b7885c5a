package processor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"sync"
	"time"

	"chessai/internal/core"
	"chessai/internal/engine"
	"chessai/internal/rules"

	"github.com/notnil/chess"
)

var (
	ErrQueueFull     = errors.New("engine queue is full")
	ErrQueueShutdown = errors.New("engine queue is shutting down")
)

// EngineTask is one move request. Depth 0 asks for a random legal move.
type EngineTask struct {
	GameID   string
	FEN      string
	Side     core.Color // side to maximize for, white maximizes
	Depth    int
	Response chan<- EngineResult
}

// EngineResult contains the outcome of an engine calculation
type EngineResult struct {
	GameID string
	Move   string // UCI, empty when the position has no legal moves
	Score  float64
	Depth  int
	Nodes  int
	Error  error
}

// EngineQueue runs searches on a fixed pool of workers. Each worker owns its
// searcher and random source, so a search never shares state with another.
type EngineQueue struct {
	tasks   chan EngineTask
	workers int
	seed    uint64
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewEngineQueue starts workerCount workers behind a queue of queueSize
// pending tasks. A non-zero seed makes every worker's choices reproducible.
func NewEngineQueue(workerCount, queueSize int, seed uint64) *EngineQueue {
	if workerCount < 1 {
		workerCount = 2
	}
	if queueSize < 1 {
		queueSize = 100
	}

	ctx, cancel := context.WithCancel(context.Background())

	q := &EngineQueue{
		tasks:   make(chan EngineTask, queueSize),
		workers: workerCount,
		seed:    seed,
		ctx:     ctx,
		cancel:  cancel,
	}

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
	return q
}

func (q *EngineQueue) newRand(id int) *rand.Rand {
	if q.seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(q.seed, uint64(id)))
}

func (q *EngineQueue) worker(id int) {
	defer q.wg.Done()

	rng := q.newRand(id)
	searcher := engine.NewSearcher[*chess.Move](engine.NewEvaluator(rng).Evaluate, rng)

	for {
		select {
		case task := <-q.tasks:
			result := processTask(searcher, rng, task)
			// Response is buffered, the send never blocks
			task.Response <- result
		case <-q.ctx.Done():
			return
		}
	}
}

// processTask runs one search on a fresh position parsed from the task's FEN
func processTask(searcher *engine.Searcher[*chess.Move], rng *rand.Rand, task EngineTask) (result EngineResult) {
	result = EngineResult{
		GameID: task.GameID,
		Depth:  task.Depth,
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("engine panic for game %s: %v", task.GameID, r)
			result.Error = fmt.Errorf("engine failure: %v", r)
		}
	}()

	pos, err := rules.Parse(task.FEN)
	if err != nil {
		result.Error = err
		return result
	}

	if task.Depth <= 0 {
		if m, ok := engine.RandomMove[*chess.Move](pos, rng); ok {
			result.Move = rules.EncodeMove(m).UCI()
		}
		return result
	}

	res := searcher.Search(pos, task.Depth, task.Side == core.ColorWhite)
	result.Nodes = res.Nodes
	if res.Found {
		result.Move = rules.EncodeMove(res.Move).UCI()
		result.Score = res.Score
	}
	return result
}

// Submit adds a task to the queue without blocking
func (q *EngineQueue) Submit(task EngineTask) error {
	if q.ctx.Err() != nil {
		return ErrQueueShutdown
	}
	select {
	case q.tasks <- task:
		return nil
	case <-q.ctx.Done():
		return ErrQueueShutdown
	default:
		return ErrQueueFull
	}
}

// SubmitAsync queues a task and hands its result to callback from another
// goroutine. There is no search deadline, callback runs once the worker is done
// or with ErrQueueShutdown if the queue stops first.
func (q *EngineQueue) SubmitAsync(gameID, fen string, side core.Color, depth int, callback func(EngineResult)) error {
	respChan := make(chan EngineResult, 1)

	task := EngineTask{
		GameID:   gameID,
		FEN:      fen,
		Side:     side,
		Depth:    depth,
		Response: respChan,
	}

	if err := q.Submit(task); err != nil {
		return err
	}

	go func() {
		select {
		case result := <-respChan:
			callback(result)
		case <-q.ctx.Done():
			callback(EngineResult{
				GameID: gameID,
				Error:  ErrQueueShutdown,
			})
		}
	}()

	return nil
}

// Search queues a task and waits for its result. Cancelling ctx stops the
// wait, the worker still finishes and its result is dropped.
func (q *EngineQueue) Search(ctx context.Context, fen string, side core.Color, depth int) (EngineResult, error) {
	if err := ctx.Err(); err != nil {
		return EngineResult{}, err
	}

	respChan := make(chan EngineResult, 1)

	task := EngineTask{
		FEN:      fen,
		Side:     side,
		Depth:    depth,
		Response: respChan,
	}

	if err := q.Submit(task); err != nil {
		return EngineResult{}, err
	}

	select {
	case result := <-respChan:
		return result, result.Error
	case <-ctx.Done():
		return EngineResult{}, ctx.Err()
	case <-q.ctx.Done():
		return EngineResult{}, ErrQueueShutdown
	}
}

// Shutdown stops the workers. A search in progress runs to completion.
func (q *EngineQueue) Shutdown(timeout time.Duration) error {
	q.cancel()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("engine queue shutdown timed out after %s", timeout)
	}
}
