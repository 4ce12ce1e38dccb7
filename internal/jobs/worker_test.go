package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockSweeper is a mock implementation of Sweeper
type MockSweeper struct {
	mock.Mock
}

func (m *MockSweeper) Sweep(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockCleanupService is a mock implementation of CleanupService
type MockCleanupService struct {
	mock.Mock
}

func (m *MockCleanupService) Cleanup(ctx context.Context, maxAgeDays int) (int64, error) {
	args := m.Called(ctx, maxAgeDays)
	return args.Get(0).(int64), args.Error(1)
}

// TestWorker_StartStop tests the worker start and stop functionality
func TestWorker_StartStop(t *testing.T) {
	mockSweeper := new(MockSweeper)
	mockSweeper.On("Sweep", mock.Anything).Return(nil)

	worker := NewWorker("retention", mockSweeper, 100*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start worker in goroutine
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	// Let it run for a bit
	time.Sleep(250 * time.Millisecond)

	// Stop worker
	worker.Stop()
	wg.Wait()

	// Verify Sweep was called at least once
	mockSweeper.AssertCalled(t, "Sweep", mock.Anything)
}

// TestWorker_ContextCancellation tests worker stops on context cancellation
func TestWorker_ContextCancellation(t *testing.T) {
	mockSweeper := new(MockSweeper)
	mockSweeper.On("Sweep", mock.Anything).Return(nil)

	worker := NewWorker("retention", mockSweeper, 100*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())

	// Start worker in goroutine
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	// Let it run for a bit
	time.Sleep(150 * time.Millisecond)

	// Cancel context
	cancel()
	wg.Wait()

	// Verify Sweep was called
	mockSweeper.AssertCalled(t, "Sweep", mock.Anything)
}

// TestWorker_SweepErrorDoesNotStopLoop tests the loop survives a failing sweep
func TestWorker_SweepErrorDoesNotStopLoop(t *testing.T) {
	mockSweeper := new(MockSweeper)
	mockSweeper.On("Sweep", mock.Anything).Return(errors.New("backend down"))

	worker := NewWorker("retention", mockSweeper, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	time.Sleep(180 * time.Millisecond)

	worker.Stop()
	wg.Wait()

	// Several ticks happened despite the error on every one of them
	assert.GreaterOrEqual(t, len(mockSweeper.Calls), 2)
}

// TestRetentionSweeper_Sweep tests the retention sweep pass
func TestRetentionSweeper_Sweep(t *testing.T) {
	mockService := new(MockCleanupService)
	mockService.On("Cleanup", mock.Anything, 90).Return(int64(4), nil)

	sweeper := NewRetentionSweeper(mockService, 90)
	err := sweeper.Sweep(context.Background())

	assert.NoError(t, err)
	mockService.AssertExpectations(t)
}

// TestRetentionSweeper_SweepError tests cleanup error propagation
func TestRetentionSweeper_SweepError(t *testing.T) {
	mockService := new(MockCleanupService)
	mockService.On("Cleanup", mock.Anything, 90).Return(int64(0), errors.New("database error"))

	sweeper := NewRetentionSweeper(mockService, 90)
	err := sweeper.Sweep(context.Background())

	assert.Error(t, err)
	mockService.AssertExpectations(t)
}

// TestRetentionSweeper_NothingToDelete tests a sweep that removes nothing
func TestRetentionSweeper_NothingToDelete(t *testing.T) {
	mockService := new(MockCleanupService)
	mockService.On("Cleanup", mock.Anything, 30).Return(int64(0), nil)

	sweeper := NewRetentionSweeper(mockService, 30)
	err := sweeper.Sweep(context.Background())

	assert.NoError(t, err)
	mockService.AssertExpectations(t)
}
