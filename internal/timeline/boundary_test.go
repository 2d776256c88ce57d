package timeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Astrrra/arcmini/internal/models"
)

type stubRecorder struct{ sleeping bool }

func (r stubRecorder) IsSleeping() bool { return r.sleeping }

type stubBoundaryEngine struct {
	current *models.Item
	ids     []uuid.UUID
	err     error
	calls   int
}

func (e *stubBoundaryEngine) CurrentItem() (*models.Item, bool) {
	return e.current, e.current != nil
}

func (e *stubBoundaryEngine) ItemsToProcess(context.Context, *models.Item) ([]uuid.UUID, error) {
	e.calls++
	return e.ids, e.err
}

func TestResolveActive(t *testing.T) {
	now := testDay.Start.Add(12 * time.Hour)
	current := testItem(false, 0)
	boundary := []uuid.UUID{current.ID, uuid.New()}

	tests := []struct {
		name     string
		segment  models.DateRange
		recorder Recorder
		engine   *stubBoundaryEngine
		want     int
	}{
		{
			name:     "today and awake expands from current item",
			segment:  testDay,
			recorder: stubRecorder{},
			engine:   &stubBoundaryEngine{current: current, ids: boundary},
			want:     2,
		},
		{
			name:     "other day is never active",
			segment:  models.DayRange(testDay.Start.AddDate(0, 0, -1)),
			recorder: stubRecorder{},
			engine:   &stubBoundaryEngine{current: current, ids: boundary},
			want:     0,
		},
		{
			name:     "sleeping recorder has no boundary",
			segment:  testDay,
			recorder: stubRecorder{sleeping: true},
			engine:   &stubBoundaryEngine{current: current, ids: boundary},
			want:     0,
		},
		{
			name:     "no current item",
			segment:  testDay,
			recorder: stubRecorder{},
			engine:   &stubBoundaryEngine{ids: boundary},
			want:     0,
		},
		{
			name:     "engine failure degrades to empty",
			segment:  testDay,
			recorder: stubRecorder{},
			engine:   &stubBoundaryEngine{current: current, ids: boundary, err: errors.New("store busy")},
			want:     0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveActive(context.Background(), tt.segment, now, tt.recorder, tt.engine)
			require.Len(t, got, tt.want)
		})
	}
}

func TestResolveActiveSkipsEngineOutsideToday(t *testing.T) {
	engine := &stubBoundaryEngine{current: testItem(false, 0)}
	yesterday := models.DayRange(testDay.Start.AddDate(0, 0, -1))

	ResolveActive(context.Background(), yesterday, testDay.Start.Add(time.Hour), stubRecorder{}, engine)

	require.Zero(t, engine.calls)
}

func TestActivity(t *testing.T) {
	inside, outside := testItem(false, 0), testItem(false, 1)
	active := NewIDSet(inside.ID)

	isActive := Activity(false, active)
	require.True(t, isActive(inside))
	require.False(t, isActive(outside))
	require.False(t, isActive(nil))

	require.True(t, Activity(true, nil)(outside))
}

func TestIDSetCloneIsIndependent(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	set := NewIDSet(a)
	clone := set.Clone()
	clone[b] = struct{}{}

	require.False(t, set.Contains(b))
	require.True(t, clone.Contains(a))
	require.False(t, set.Equal(clone))
	require.Len(t, IDSet(nil).Clone(), 0)
	require.Len(t, clone.Sorted(), 2)
}
