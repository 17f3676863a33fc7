package service

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/yourlocalmaccas/School-Website/internal/models"
)

// sortByLastName orders students by last name, then full name, using English
// collation without case sensitivity. Collators are not safe for concurrent
// use so one is built per call.
func sortByLastName(students []models.StudentRow) {
	c := collate.New(language.English, collate.IgnoreCase)
	sort.SliceStable(students, func(i, j int) bool {
		if r := c.CompareString(students[i].LastName(), students[j].LastName()); r != 0 {
			return r < 0
		}
		return c.CompareString(students[i].Name, students[j].Name) < 0
	})
}
