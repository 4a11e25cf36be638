package model

// Category is the column an item is filed under. Each Kind has a closed
// set of categories; values outside that set are rejected by ParseCategory.
type Category string

// Task categories.
const (
	CategoryToDo       Category = "To Do"
	CategoryInProgress Category = "In Progress"
	CategoryDone       Category = "Done"
)

// Goal categories.
const (
	CategoryDailyGoal   Category = "Daily Goal"
	CategoryWeeklyGoal  Category = "Weekly Goal"
	CategoryMonthlyGoal Category = "Monthly Goal"
)

var (
	taskCategories = []Category{CategoryToDo, CategoryInProgress, CategoryDone}
	goalCategories = []Category{CategoryDailyGoal, CategoryWeeklyGoal, CategoryMonthlyGoal}
)

// Categories returns the categories of kind in display order.
// The returned slice is a copy.
func Categories(kind Kind) []Category {
	var src []Category
	switch kind {
	case KindTask:
		src = taskCategories
	case KindGoal:
		src = goalCategories
	}
	out := make([]Category, len(src))
	copy(out, src)
	return out
}

// DefaultCategory is the first category of kind; new items start there.
func DefaultCategory(kind Kind) Category {
	cats := Categories(kind)
	if len(cats) == 0 {
		return ""
	}
	return cats[0]
}

// ValidFor reports whether c belongs to the category set of kind.
func (c Category) ValidFor(kind Kind) bool {
	for _, known := range Categories(kind) {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory converts s into a Category of kind.
func ParseCategory(kind Kind, s string) (Category, error) {
	c := Category(s)
	if !c.ValidFor(kind) {
		return "", &CategoryError{Kind: kind, Value: s}
	}
	return c, nil
}

// String implements fmt.Stringer.
func (c Category) String() string { return string(c) }
