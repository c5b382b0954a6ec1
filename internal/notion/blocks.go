package notion

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ashureev/mockdy/internal/domain"
)

// MaxTextLength is the provider's per-block rich text limit.
const MaxTextLength = 2000

const ellipsis = "..."

// Truncate shortens s to MaxTextLength characters including a trailing "...".
func Truncate(s string) string {
	if utf8.RuneCountInString(s) <= MaxTextLength {
		return s
	}
	runes := []rune(s)
	return string(runes[:MaxTextLength-len(ellipsis)]) + ellipsis
}

// PageRequest is the body of a page creation call.
type PageRequest struct {
	Parent     Parent     `json:"parent"`
	Properties Properties `json:"properties"`
	Children   []Block    `json:"children"`
}

// Parent places the page in a database.
type Parent struct {
	DatabaseID string `json:"database_id"`
}

// Properties matches the expected database columns.
type Properties struct {
	Title TitleProperty  `json:"Title"`
	Type  SelectProperty `json:"Type"`
	Score NumberProperty `json:"Score"`
	Date  DateProperty   `json:"Date"`
}

type TitleProperty struct {
	Title []TitleText `json:"title"`
}

type TitleText struct {
	Text Text `json:"text"`
}

type SelectProperty struct {
	Select SelectOption `json:"select"`
}

type SelectOption struct {
	Name string `json:"name"`
}

type NumberProperty struct {
	Number int `json:"number"`
}

type DateProperty struct {
	Date DateValue `json:"date"`
}

type DateValue struct {
	Start string `json:"start"`
}

// Text is plain text content.
type Text struct {
	Content string `json:"content"`
}

// Annotations style a rich text run.
type Annotations struct {
	Bold  bool   `json:"bold,omitempty"`
	Color string `json:"color,omitempty"`
}

// RichText is one styled text run.
type RichText struct {
	Type        string       `json:"type"`
	Text        Text         `json:"text"`
	Annotations *Annotations `json:"annotations,omitempty"`
}

// Block is a content block. Exactly one payload field is set, matching Type.
type Block struct {
	Object           string          `json:"object"`
	Type             string          `json:"type"`
	Heading1         *TextBlock      `json:"heading_1,omitempty"`
	Heading2         *TextBlock      `json:"heading_2,omitempty"`
	Heading3         *TextBlock      `json:"heading_3,omitempty"`
	Paragraph        *TextBlock      `json:"paragraph,omitempty"`
	BulletedListItem *TextBlock      `json:"bulleted_list_item,omitempty"`
	Toggle           *TextBlock      `json:"toggle,omitempty"`
	Callout          *CalloutBlock   `json:"callout,omitempty"`
	Code             *CodeBlock      `json:"code,omitempty"`
	ColumnList       *ContainerBlock `json:"column_list,omitempty"`
	Column           *ContainerBlock `json:"column,omitempty"`
	Divider          *struct{}       `json:"divider,omitempty"`
}

type TextBlock struct {
	RichText []RichText `json:"rich_text"`
	Children []Block    `json:"children,omitempty"`
}

type CalloutBlock struct {
	Icon     Emoji      `json:"icon"`
	Color    string     `json:"color"`
	RichText []RichText `json:"rich_text"`
}

type Emoji struct {
	Emoji string `json:"emoji"`
}

type CodeBlock struct {
	Language string     `json:"language"`
	RichText []RichText `json:"rich_text"`
}

type ContainerBlock struct {
	Children []Block `json:"children"`
}

func plain(content string) []RichText {
	return []RichText{{Type: "text", Text: Text{Content: content}}}
}

func styled(content string, a Annotations) []RichText {
	return []RichText{{Type: "text", Text: Text{Content: content}, Annotations: &a}}
}

func textBlock(kind, content string) Block {
	b := Block{Object: "block", Type: kind}
	tb := &TextBlock{RichText: plain(content)}
	switch kind {
	case "heading_1":
		b.Heading1 = tb
	case "heading_2":
		b.Heading2 = tb
	case "heading_3":
		b.Heading3 = tb
	case "bulleted_list_item":
		b.BulletedListItem = tb
	default:
		b.Type = "paragraph"
		b.Paragraph = tb
	}
	return b
}

func divider() Block {
	return Block{Object: "block", Type: "divider", Divider: &struct{}{}}
}

func codeBlock(content string) Block {
	return Block{Object: "block", Type: "code", Code: &CodeBlock{Language: "python", RichText: plain(content)}}
}

func column(children []Block) Block {
	return Block{Object: "block", Type: "column", Column: &ContainerBlock{Children: children}}
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// Transcript renders the session messages the way they appear in the report.
func Transcript(messages []domain.Message) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		speaker := "🤖 Interviewer"
		if m.Role == domain.RoleUser {
			speaker = "👤 You"
		}
		lines = append(lines, speaker+": "+m.Text)
	}
	return strings.Join(lines, "\n\n")
}

// BuildPageRequest renders a completed session as a database page.
func BuildPageRequest(session domain.StoredSession, databaseID string) PageRequest {
	return PageRequest{
		Parent: Parent{DatabaseID: databaseID},
		Properties: Properties{
			Title: TitleProperty{Title: []TitleText{{Text: Text{Content: Title(session)}}}},
			Type:  SelectProperty{Select: SelectOption{Name: string(session.Type)}},
			Score: NumberProperty{Number: session.Feedback.Score},
			Date:  DateProperty{Date: DateValue{Start: isoDate(session.Time())}},
		},
		Children: reportBlocks(session),
	}
}

func reportBlocks(session domain.StoredSession) []Block {
	fb := session.Feedback
	summary := Truncate(fb.Summary)
	transcript := Truncate(Transcript(session.Messages))
	notes := Truncate(session.CodeOrNotes)
	optimal := Truncate(fb.OptimalSolution)

	strengths := []Block{textBlock("heading_3", "✅ Strengths")}
	for _, s := range fb.Strengths {
		strengths = append(strengths, textBlock("bulleted_list_item", Truncate(s)))
	}
	weaknesses := []Block{textBlock("heading_3", "⚠️ Areas for Improvement")}
	for _, w := range fb.Weaknesses {
		weaknesses = append(weaknesses, Block{
			Object:           "block",
			Type:             "bulleted_list_item",
			BulletedListItem: &TextBlock{RichText: styled(Truncate(w), Annotations{Bold: true, Color: "red"})},
		})
	}

	blocks := []Block{
		textBlock("heading_1", "📊 Summary"),
		{
			Object: "block",
			Type:   "callout",
			Callout: &CalloutBlock{
				Icon:     Emoji{Emoji: "💡"},
				Color:    "yellow_background",
				RichText: styled(orDefault(summary, "No summary available."), Annotations{Bold: true}),
			},
		},
		divider(),
		textBlock("heading_2", "Performance Review"),
		{
			Object:     "block",
			Type:       "column_list",
			ColumnList: &ContainerBlock{Children: []Block{column(strengths), column(weaknesses)}},
		},
		divider(),
		textBlock("heading_2", "📝 Interview Transcript"),
		{
			Object: "block",
			Type:   "toggle",
			Toggle: &TextBlock{
				RichText: plain("View Transcript"),
				Children: []Block{textBlock("paragraph", orDefault(transcript, "No transcript recorded."))},
			},
		},
		divider(),
	}

	if session.Type != domain.InterviewBehavioral {
		blocks = append(blocks, textBlock("heading_2", "💻 Code / Notes"))
		if session.Type == domain.InterviewTechnical {
			blocks = append(blocks, codeBlock(orDefault(notes, "// No code recorded")))
		} else {
			blocks = append(blocks, textBlock("paragraph", orDefault(notes, "No design notes / high-level description provided.")))
		}
	}

	if session.Type == domain.InterviewTechnical {
		return append(blocks,
			textBlock("heading_2", "✨ Optimal Solution"),
			codeBlock(orDefault(optimal, "// No optimal solution provided.")),
		)
	}
	return append(blocks,
		textBlock("heading_2", "🧭 Recommended Approach / Standard Answer"),
		textBlock("paragraph", orDefault(optimal, "No recommended approach / standard answer provided.")),
	)
}

// isoDate formats t as RFC 3339 UTC with milliseconds.
func isoDate(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
