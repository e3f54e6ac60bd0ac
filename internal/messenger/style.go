package messenger

import "strings"

// Style is a caller-selected post-processing pass over a generated
// message.
type Style string

const (
	StyleProfessional Style = "professional"
	StyleFriendly     Style = "friendly"
	StyleShort        Style = "short"
)

// ApplyStyle post-processes msg per spec.md §4.4. An unrecognized or
// empty style leaves msg unchanged.
func ApplyStyle(msg string, style Style, senderOrg string) string {
	switch style {
	case StyleProfessional:
		msg = strings.Replace(msg, "Hi", "Dear", 1)
		if senderOrg != "" {
			msg = appendSignoff(msg, "Best regards, "+senderOrg)
		}
	case StyleFriendly:
		msg = strings.Replace(msg, "Dear", "Hi", 1)
		msg = strings.Replace(msg, "Best regards,", "Cheers,", 1)
	case StyleShort:
		lines := strings.Split(msg, "\n")
		if len(lines) > 4 {
			lines = lines[:4]
		}
		msg = strings.Join(lines, "\n")
	}
	return msg
}

// appendSignoff replaces a trailing "Best,\n<sender>" style signoff with
// signoff, or appends it if the message has none.
func appendSignoff(msg, signoff string) string {
	idx := strings.LastIndex(msg, "\n\nBest,")
	if idx == -1 {
		idx = strings.LastIndex(msg, "\n\nBest regards,")
	}
	if idx == -1 {
		return msg + "\n\n" + signoff
	}
	return msg[:idx] + "\n\n" + signoff
}
