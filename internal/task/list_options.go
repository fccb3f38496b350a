package task

// SortOrder defines how results should be ordered when listing tasks.
type SortOrder int

const (
	// SortByIDDesc orders tasks newest first.
	SortByIDDesc SortOrder = iota
	// SortByManual orders tasks by their reorder position, unpositioned tasks last.
	SortByManual
)

// ListOptions controls how tasks are selected when querying the store.
type ListOptions struct {
	Order     SortOrder
	Completed *bool
}

func (opts *ListOptions) applyDefaults() {
	if opts.Order != SortByManual {
		opts.Order = SortByIDDesc
	}
}

// ListOption mutates ListOptions.
type ListOption func(*ListOptions)

// WithSortOrder changes the returned order of tasks.
func WithSortOrder(order SortOrder) ListOption {
	return func(opts *ListOptions) {
		opts.Order = order
	}
}

// WithCompleted filters tasks by completion state.
func WithCompleted(completed bool) ListOption {
	return func(opts *ListOptions) {
		opts.Completed = new(bool)
		*opts.Completed = completed
	}
}

// BuildListOptions applies option functions on top of defaults.
func BuildListOptions(opts ...ListOption) ListOptions {
	options := ListOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	options.applyDefaults()
	return options
}

// Matches reports whether a task passes the filters in opts.
func (opts ListOptions) Matches(t *Task) bool {
	if opts.Completed != nil && (t.Completed == 1) != *opts.Completed {
		return false
	}
	return true
}
