// Package intent maps normalized message text onto the fixed set of menu intents.
package intent

import "strings"

// Intent is the classified meaning of an inbound message.
type Intent int

const (
	FreeText Intent = iota
	Greeting
	Option1
	Option2
	Option3
)

var names = map[Intent]string{
	FreeText: "FREE_TEXT",
	Greeting: "GREETING",
	Option1:  "OPTION_1",
	Option2:  "OPTION_2",
	Option3:  "OPTION_3",
}

func (i Intent) String() string {
	if name, ok := names[i]; ok {
		return name
	}
	return "UNKNOWN"
}

// All lists every intent, in menu order.
func All() []Intent {
	return []Intent{Greeting, Option1, Option2, Option3, FreeText}
}

// table is matched exactly against trimmed, lower-cased text.
var table = map[string]Intent{
	"hola":     Greeting,
	"menu":     Greeting,
	"opciones": Greeting,
	"hi":       Greeting,
	"1":        Option1,
	"2":        Option2,
	"3":        Option3,
}

// Classify returns the intent for text. It trims and lower-cases its input, so
// already normalized and raw text classify the same way. Anything that is not
// an exact keyword, including the empty string, is FreeText.
func Classify(text string) Intent {
	if i, ok := table[strings.ToLower(strings.TrimSpace(text))]; ok {
		return i
	}
	return FreeText
}
