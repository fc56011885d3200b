package study

import "github.com/ashureev/vocabook/internal/sheet"

// View is the JSON form of a Snapshot sent to clients.
type View struct {
	State         Phase      `json:"state"`
	Generation    uint64     `json:"generation"`
	Kind          string     `json:"kind,omitempty"`
	Selection     []sheet.ID `json:"selection,omitempty"`
	Card          *CardView  `json:"card,omitempty"`
	AnswerVisible bool       `json:"answer_visible"`
	Progress      *Progress  `json:"progress,omitempty"`
}

// CardView is a card rendered through its sheet's layout.
type CardView struct {
	Sheet  sheet.ID      `json:"sheet"`
	Term   string        `json:"term"`
	Fields []sheet.Field `json:"fields"`
}

// View renders the snapshot. Column meaning comes from catalog.
func (s Snapshot) View(catalog *sheet.Catalog) View {
	v := View{
		State:         s.Phase,
		Generation:    s.Generation,
		AnswerVisible: s.AnswerVisible,
	}
	if s.Kind != 0 {
		v.Kind = s.Kind.String()
	}
	if s.Selection.Len() > 0 {
		v.Selection = s.Selection.IDs()
	}
	if s.HasCard {
		v.Card = &CardView{
			Sheet:  s.Card.Sheet,
			Term:   s.Card.Term(),
			Fields: catalog.LayoutFor(s.Card.Sheet).Fields(s.Card, s.AnswerVisible),
		}
	}
	if s.HasProgress {
		p := s.Progress
		v.Progress = &p
	}
	return v
}
