package extract

import (
	"github.com/harrisonrobin/notask/pkg/model"
	"github.com/harrisonrobin/notask/pkg/notion"
)

// PageTitle returns the text of the page's title property, or nil when the
// page has none.
func PageTitle(page notion.Page) *string {
	for _, v := range page.Properties {
		if p, ok := v.(*notion.TitleProperty); ok {
			s := notion.PlainText(p.Title)
			return &s
		}
	}
	return nil
}

// PageIcon converts the page icon, or returns nil when the page has none.
func PageIcon(page notion.Page) *model.Icon {
	return Icon(page.Icon)
}

// Icon converts a Notion icon into its client representation.
func Icon(icon *notion.Icon) *model.Icon {
	if icon == nil {
		return nil
	}
	return &model.Icon{
		Type:     icon.Type,
		Emoji:    icon.Emoji,
		External: fileRef(icon.External),
		File:     fileRef(icon.File),
	}
}

func fileRef(f *notion.FileObject) *model.FileRef {
	if f == nil {
		return nil
	}
	return &model.FileRef{URL: f.URL, ExpiryTime: f.ExpiryTime}
}
