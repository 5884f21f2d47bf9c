package prompt

import "strings"

// MediaOptions toggles which media categories the target dialect accepts.
// Images are always embedded; audio and video are opt-in because most
// dialects reject them.
type MediaOptions struct {
	Audio bool
	Video bool
}

// ParseDataURI splits a data: URI into its MIME type and base64 payload.
func ParseDataURI(url string) (mimeType, data string, ok bool) {
	if !strings.HasPrefix(url, "data:") {
		return "", "", false
	}

	rest := strings.TrimPrefix(url, "data:")

	meta, payload, found := strings.Cut(rest, ",")
	if !found {
		return "", "", false
	}

	mimeType = strings.TrimSuffix(meta, ";base64")
	if mimeType == meta {
		// Only base64 payloads can be re-encoded as inline attachments.
		return "", "", false
	}

	return mimeType, payload, true
}

// EmbedInlineMedia returns a copy of messages in which media reference parts
// carrying data: URIs are rewritten into inline_data parts holding the raw
// MIME type and payload. Compilers map inline_data onto their native
// attachment encoding. Non-data URLs and disabled categories pass through.
func EmbedInlineMedia(messages []Message, opts MediaOptions) []Message {
	out := CloneMessages(messages)

	for i := range out {
		if !out[i].Content.IsParts() {
			continue
		}

		for j, p := range out[i].Content.Parts {
			switch p.Type {
			case PartImage:
			case PartAudio:
				if !opts.Audio {
					continue
				}
			case PartVideo:
				if !opts.Video {
					continue
				}
			default:
				continue
			}

			mimeType, data, ok := ParseDataURI(p.URL)
			if !ok {
				continue
			}

			out[i].Content.Parts[j] = Part{
				Type:     PartInlineData,
				MIMEType: mimeType,
				Data:     data,
			}
		}
	}

	return out
}
