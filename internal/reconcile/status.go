package reconcile

import (
	"strings"

	"github.com/pokerjest/animeshelf/internal/model"
)

// export status names and MAL numeric codes
var statusMap = map[string]model.WatchState{
	"watching":      model.StateWatching,
	"1":             model.StateWatching,
	"completed":     model.StateCompleted,
	"2":             model.StateCompleted,
	"on-hold":       model.StateWatching,
	"on hold":       model.StateWatching,
	"3":             model.StateWatching,
	"dropped":       model.StateDropped,
	"4":             model.StateDropped,
	"plan to watch": model.StateToWatch,
	"6":             model.StateToWatch,

	string(model.StateToWatch): model.StateToWatch,
}

// TranslateStatus maps an export status to a watch state. ok is false for an
// empty or unknown status.
func TranslateStatus(status string) (model.WatchState, bool) {
	st, ok := statusMap[strings.ToLower(strings.TrimSpace(status))]
	return st, ok
}
