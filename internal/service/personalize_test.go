package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"dailyprompt/internal/models"
)

func TestExcludeViewer(t *testing.T) {
	f := newFixture(t)
	gc := &groupContext{
		group: &models.Group{ID: "G", Type: models.GroupFamily},
		members: []models.Member{
			{UserID: "u3", Name: "Cat"},
			{UserID: "u1", Name: "Ann"},
			{UserID: "u2", Name: "Bob"},
		},
	}

	tests := []struct {
		name     string
		recorded string
		viewer   string
		want     string
	}{
		{name: "anonymous viewer", recorded: "Ann", viewer: "", want: "Ann"},
		{name: "someone else", recorded: "Bob", viewer: "u1", want: "Bob"},
		{name: "own name moves to the next member", recorded: "Ann", viewer: "u1", want: "Bob"},
		{name: "wraps around", recorded: "Cat", viewer: "u3", want: "Ann"},
		{name: "unknown viewer", recorded: "Ann", viewer: "u9", want: "Ann"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.svc.excludeViewer(gc, tt.recorded, tt.viewer))
		})
	}

	t.Run("only the viewer left", func(t *testing.T) {
		solo := &groupContext{group: gc.group, members: []models.Member{{UserID: "u1", Name: "Ann"}}}
		assert.Equal(t, "them", f.svc.excludeViewer(solo, "Ann", "u1"))
	})
}

func TestBirthdayNames(t *testing.T) {
	f := newFixture(t)
	gc := &groupContext{
		group: &models.Group{ID: "G", Type: models.GroupFamily},
		members: []models.Member{
			{UserID: "u1", Name: "Ann", Birthday: "1990-03-05"},
			{UserID: "u2", Name: "Bob", Birthday: "1988-07-14"},
			{UserID: "u3", Name: "Cat", Birthday: "2001-03-05"},
		},
	}
	d, err := ParseDate("2024-03-05")
	assert.NoError(t, err)

	assert.Equal(t, "Ann and Cat", f.svc.birthdayNames(gc, d, "u2"))
	assert.Equal(t, "Ann and Cat", f.svc.birthdayNames(gc, d, ""))
	assert.Equal(t, "Cat", f.svc.birthdayNames(gc, d, "u1"))

	other, err := ParseDate("2024-03-06")
	assert.NoError(t, err)
	assert.Equal(t, "them", f.svc.birthdayNames(gc, other, ""))
}

func TestFallbackNameNotRecorded(t *testing.T) {
	f := newFixture(t)
	f.cfg.MinMembersForMemberName = 0
	f.svc.eligibility.minMembers = 0
	f.group("G", models.GroupFamily, "Ann")
	f.prompt(models.Prompt{ID: "fun-1", Question: "Thank {member_name}", Category: models.CategoryFun})

	// The only member is the viewer, so there is nobody to name
	a := f.resolve("G", "2024-03-05", "u1")
	assert.Equal(t, "Thank them", a.Question)
	assert.Empty(t, f.store.UsageRecords("G"))
}
