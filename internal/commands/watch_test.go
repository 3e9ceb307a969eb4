package commands

import (
	"testing"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
)

func TestWatchedFileChanged(t *testing.T) {
	const path = "/tmp/notes/draft.md"

	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"write to watched file", fsnotify.Event{Name: path, Op: fsnotify.Write}, true},
		{"editor replace via create", fsnotify.Event{Name: path, Op: fsnotify.Create}, true},
		{"editor replace via rename", fsnotify.Event{Name: path, Op: fsnotify.Rename}, true},
		{"chmod carries no content", fsnotify.Event{Name: path, Op: fsnotify.Chmod}, false},
		{"remove carries no content", fsnotify.Event{Name: path, Op: fsnotify.Remove}, false},
		{"sibling file in same dir", fsnotify.Event{Name: "/tmp/notes/other.md", Op: fsnotify.Write}, false},
		{"combined write and chmod", fsnotify.Event{Name: path, Op: fsnotify.Write | fsnotify.Chmod}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, watchedFileChanged(tt.event, path))
		})
	}
}
