package flow

import "github.com/alanyoungcy/polytgbot/internal/callback"

// Button is one labeled choice. Token is an encoded callback action.
type Button struct {
	Label string
	Token string
}

// View is an outbound display update. An empty Text means the current
// message is left as is and only Notice is shown.
type View struct {
	Text    string
	Buttons [][]Button
	Notice  string
}

func btn(label string, a callback.Action) Button {
	return Button{Label: label, Token: callback.MustEncode(a)}
}

func row(buttons ...Button) []Button { return buttons }

func notice(text string) View { return View{Notice: text} }
