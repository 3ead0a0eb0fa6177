package option

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplayName(t *testing.T) {
	testCases := []struct {
		name string
		in   string
		want string
	}{
		{name: "single hyphen", in: "true-random", want: "True random"},
		{name: "no hyphen", in: "science", want: "Science"},
		{name: "several hyphens only first replaced", in: "very-brand-new", want: "Very brand-new"},
		{name: "leading hyphen kept", in: "-odd", want: "-odd"},
		{name: "empty", in: "", want: ""},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert.Equal(t, testCase.want, DisplayName(testCase.in))
		})
	}
}

func TestActiveSortedByName(t *testing.T) {
	options := Defaults()
	options = append(options, Option{Name: "archived", Description: "Old", IsActive: false})

	got := ActiveSortedByName(options)

	names := make([]string, 0, len(got))
	for _, opt := range got {
		names = append(names, opt.Name)
	}
	assert.Equal(t, []string{"brand-new", "culture", "history", "science", "trending", "true-random"}, names)
}

func TestDefaultsHasSixActiveOptions(t *testing.T) {
	defaults := Defaults()

	assert.Len(t, defaults, 6)
	for _, opt := range defaults {
		assert.True(t, opt.IsActive, opt.Name)
		assert.NotEmpty(t, opt.Description, opt.Name)
	}
}
