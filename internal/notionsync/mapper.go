package notionsync

import (
	"github.com/jomei/notionapi"

	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/domain"
)

// Property names of the mirrored Notion database.
const (
	PropName         = "Name"
	PropSourceID     = "Source ID"
	PropSlug         = "Slug"
	PropMainCategory = "Main Category"
	PropSub1         = "Sub 1"
	PropSub2         = "Sub 2"
	PropSub3         = "Sub 3"
	PropSub4         = "Sub 4"
	PropImage        = "Image"
	PropPosition     = "Position"
	PropIsActive     = "Is Active"
)

// CategoryToNotionProperties maps a category row to page properties.
// Null sub levels are written as empty text so a re-sync clears them.
func CategoryToNotionProperties(c domain.NormalizedCategory) notionapi.Properties {
	props := notionapi.Properties{
		PropName: notionapi.TitleProperty{
			Title: richText(c.Name),
		},
		PropSourceID: notionapi.NumberProperty{
			Number: float64(c.SourceID),
		},
		PropSlug: notionapi.RichTextProperty{
			RichText: richText(c.Slug),
		},
		PropMainCategory: notionapi.SelectProperty{
			Select: notionapi.Option{Name: c.MainCategory},
		},
		PropSub1: textOrEmpty(c.Sub1),
		PropSub2: textOrEmpty(c.Sub2),
		PropSub3: textOrEmpty(c.Sub3),
		PropSub4: textOrEmpty(c.Sub4),
		PropPosition: notionapi.NumberProperty{
			Number: float64(c.Position),
		},
		PropIsActive: notionapi.CheckboxProperty{
			Checkbox: c.IsActive,
		},
	}

	if c.Image != nil && *c.Image != "" {
		props[PropImage] = notionapi.URLProperty{URL: *c.Image}
	}

	return props
}

// sourceIDFromPage reads the Source ID property, returning 0 when it is
// missing or not a positive whole number.
func sourceIDFromPage(page notionapi.Page) int64 {
	prop, ok := page.Properties[PropSourceID]
	if !ok {
		return 0
	}
	num, ok := prop.(*notionapi.NumberProperty)
	if !ok {
		return 0
	}
	id := int64(num.Number)
	if id <= 0 || float64(id) != num.Number {
		return 0
	}
	return id
}

func richText(s string) []notionapi.RichText {
	return []notionapi.RichText{
		{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{Content: s},
		},
	}
}

func textOrEmpty(s *string) notionapi.RichTextProperty {
	if s == nil {
		return notionapi.RichTextProperty{RichText: []notionapi.RichText{}}
	}
	return notionapi.RichTextProperty{RichText: richText(*s)}
}
