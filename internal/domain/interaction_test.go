package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/locustsocial/feedsync/internal/domain"
)

func boolPtr(b bool) *bool { return &b }

func TestInteractionWriteEvent_Deltas(t *testing.T) {
	testCases := []struct {
		name   string
		before *domain.InteractionSnapshot
		after  *domain.InteractionSnapshot
		want   []domain.SignalDelta
	}{
		{
			name:  "first like from scratch",
			after: &domain.InteractionSnapshot{Like: boolPtr(true)},
			want:  []domain.SignalDelta{{Type: domain.SignalLike, Weight: 1}},
		},
		{
			name:   "unlike emits zero weight",
			before: &domain.InteractionSnapshot{Like: boolPtr(true)},
			after:  &domain.InteractionSnapshot{Like: boolPtr(false)},
			want:   []domain.SignalDelta{{Type: domain.SignalLike, Weight: 0}},
		},
		{
			name:   "unchanged like emits nothing",
			before: &domain.InteractionSnapshot{Like: boolPtr(true)},
			after:  &domain.InteractionSnapshot{Like: boolPtr(true)},
			want:   nil,
		},
		{
			name:   "absent after field emits nothing",
			before: &domain.InteractionSnapshot{Like: boolPtr(true)},
			after:  &domain.InteractionSnapshot{},
			want:   nil,
		},
		{
			name:   "view delta is the increment",
			before: &domain.InteractionSnapshot{ViewSecs: 10},
			after:  &domain.InteractionSnapshot{ViewSecs: 22.5},
			want:   []domain.SignalDelta{{Type: domain.SignalView, Weight: 12.5}},
		},
		{
			name:   "view decrease emits nothing",
			before: &domain.InteractionSnapshot{ViewSecs: 30},
			after:  &domain.InteractionSnapshot{ViewSecs: 10},
			want:   nil,
		},
		{
			name:  "all three signals together",
			after: &domain.InteractionSnapshot{Like: boolPtr(true), Save: boolPtr(true), ViewSecs: 5},
			want: []domain.SignalDelta{
				{Type: domain.SignalLike, Weight: 1},
				{Type: domain.SignalSave, Weight: 1},
				{Type: domain.SignalView, Weight: 5},
			},
		},
		{
			name:   "deletion emits nothing",
			before: &domain.InteractionSnapshot{Like: boolPtr(true)},
			after:  nil,
			want:   nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			event := &domain.InteractionWriteEvent{
				ActorID:   "user-1",
				ContentID: "post-1",
				Before:    tc.before,
				After:     tc.after,
			}
			assert.Equal(t, tc.want, event.Deltas())
		})
	}
}

func TestContentWriteEvent_Deleted(t *testing.T) {
	assert.True(t, (&domain.ContentWriteEvent{Before: map[string]any{"title": "x"}}).Deleted())
	assert.False(t, (&domain.ContentWriteEvent{After: map[string]any{"title": "x"}}).Deleted())
}

func TestContentRecord_BodyPrefersTextField(t *testing.T) {
	rec := &domain.ContentRecord{Raw: map[string]any{"text": "newer", "body": "older"}}
	assert.Equal(t, "newer", rec.Body())

	rec = &domain.ContentRecord{Raw: map[string]any{"body": "older"}}
	assert.Equal(t, "older", rec.Body())
}
