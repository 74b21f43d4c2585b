package blogservice

import (
	"github.com/trendstalk/trendstalk/internal/common"
)

func validateTitle(v *common.Validator, title string) {
	v.Check(title != "", "title", "must be provided")
	v.Check(v.CheckStringLength(title, 3, 200), "title", "must be between 3 and 200 characters long")
}

func validateContent(v *common.Validator, content string) {
	v.Check(content != "", "content", "must be provided")
}

func validateTags(v *common.Validator, tags []string) {
	v.Check(len(tags) > 0, "tags", "must be provided")
	for _, tag := range tags {
		if tag == "" {
			v.AddError("tags", "must not contain empty values")
			return
		}
	}
}

func validateCategoryTitle(v *common.Validator, title string) {
	v.Check(title != "", "title", "must be provided")
	v.Check(v.CheckStringLength(title, 2, 50), "title", "must be between 2 and 50 characters long")
}

func validateCommentContent(v *common.Validator, content string) {
	v.Check(content != "", "comment", "must be provided")
	v.Check(v.CheckStringLength(content, 1, 2000), "comment", "must not be longer than 2000 characters")
}

func validateInt(v *common.Validator, num int, name string) {
	v.Check(num > 0, name, "must be greater than zero")
}
