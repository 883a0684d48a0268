package protocol

import (
	"encoding/json"
	"time"
)

// MaxTextWallLength is the text length above which a text wall is likely to
// render poorly on the glasses.
const MaxTextWallLength = 1000

// View selects the display surface a layout is drawn on.
type View string

// Views
const (
	ViewMain      View = "main"
	ViewDashboard View = "dashboard"
)

// LayoutType is the "layoutType" discriminator of a layout.
type LayoutType string

// Layout types
const (
	LayoutTextWall       LayoutType = "text_wall"
	LayoutDoubleTextWall LayoutType = "double_text_wall"
	LayoutReferenceCard  LayoutType = "reference_card"
	LayoutDashboardCard  LayoutType = "dashboard_card"
	LayoutBitmapView     LayoutType = "bitmap_view"
)

// Layout is one of the display layouts below.
type Layout interface {
	LayoutType() LayoutType
}

type TextWall struct {
	Text string `json:"text"`
}

type DoubleTextWall struct {
	TopText    string `json:"topText"`
	BottomText string `json:"bottomText"`
}

type ReferenceCard struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

type DashboardCard struct {
	LeftText  string `json:"leftText"`
	RightText string `json:"rightText"`
}

// BitmapView shows an image; Data is base64 encoded.
type BitmapView struct {
	Data string `json:"data"`
}

func (TextWall) LayoutType() LayoutType       { return LayoutTextWall }
func (DoubleTextWall) LayoutType() LayoutType { return LayoutDoubleTextWall }
func (ReferenceCard) LayoutType() LayoutType  { return LayoutReferenceCard }
func (DashboardCard) LayoutType() LayoutType  { return LayoutDashboardCard }
func (BitmapView) LayoutType() LayoutType     { return LayoutBitmapView }

// The plain* aliases drop the MarshalJSON methods so the embedded fields can
// be encoded next to the discriminator without recursion.
type (
	plainTextWall       TextWall
	plainDoubleTextWall DoubleTextWall
	plainReferenceCard  ReferenceCard
	plainDashboardCard  DashboardCard
	plainBitmapView     BitmapView
)

func (l TextWall) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		LayoutType LayoutType `json:"layoutType"`
		plainTextWall
	}{l.LayoutType(), plainTextWall(l)})
}

func (l DoubleTextWall) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		LayoutType LayoutType `json:"layoutType"`
		plainDoubleTextWall
	}{l.LayoutType(), plainDoubleTextWall(l)})
}

func (l ReferenceCard) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		LayoutType LayoutType `json:"layoutType"`
		plainReferenceCard
	}{l.LayoutType(), plainReferenceCard(l)})
}

func (l DashboardCard) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		LayoutType LayoutType `json:"layoutType"`
		plainDashboardCard
	}{l.LayoutType(), plainDashboardCard(l)})
}

func (l BitmapView) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		LayoutType LayoutType `json:"layoutType"`
		plainBitmapView
	}{l.LayoutType(), plainBitmapView(l)})
}

// DisplayRequest is what session code asks to show. The transport turns it
// into a DisplayEvent addressed to its own session.
type DisplayRequest struct {
	View   View
	Layout Layout

	// Duration is how long the layout stays up; zero leaves it until replaced.
	Duration time.Duration
}

// ShowText returns a main-view text wall request.
func ShowText(text string) DisplayRequest {
	return DisplayRequest{View: ViewMain, Layout: TextWall{Text: text}}
}

// ShowDoubleText returns a main-view double text wall request.
func ShowDoubleText(top, bottom string) DisplayRequest {
	return DisplayRequest{View: ViewMain, Layout: DoubleTextWall{TopText: top, BottomText: bottom}}
}

// Oversized reports whether the request is a text wall longer than
// MaxTextWallLength.
func (r DisplayRequest) Oversized() bool {
	tw, ok := r.Layout.(TextWall)
	return ok && len(tw.Text) > MaxTextWallLength
}

// Event addresses the request to a session.
func (r DisplayRequest) Event(packageName, sessionID string, at time.Time) DisplayEvent {
	view := r.View
	if view == "" {
		view = ViewMain
	}
	ev := DisplayEvent{
		Type:        TypeDisplayEvent,
		PackageName: packageName,
		SessionID:   sessionID,
		View:        view,
		Layout:      r.Layout,
		Timestamp:   timestamp(at),
	}
	if r.Duration > 0 {
		ms := uint64(r.Duration / time.Millisecond)
		ev.DurationMs = &ms
	}
	return ev
}
