package dialects

// cacheControl marks a content part as a reusable prompt-prefix boundary.
type cacheControl struct {
	Type string `json:"type"`
	TTL  string `json:"ttl,omitempty"`
}

func newCacheControl(ttl string) *cacheControl {
	return &cacheControl{Type: "ephemeral", TTL: ttl}
}

// applySystemPromptCache marks the last text block of the system prompt.
// Idempotent: an existing marker is left alone.
func applySystemPromptCache(system []claudeContent, ttl string) {
	for i := len(system) - 1; i >= 0; i-- {
		if system[i].Type != "text" {
			continue
		}

		if system[i].CacheControl == nil {
			system[i].CacheControl = newCacheControl(ttl)
		}

		return
	}
}

// applyDepthCache walks the conversation from the end, counting role-switch
// groups starting at depth 0, and marks the last content part of the group
// at depth and at depth+2. A trailing assistant prefill turn is outside the
// stable prefix and is skipped. At most two messages get marked.
func applyDepthCache(messages []claudeMessage, depth int, ttl string, hasPrefill bool) {
	end := len(messages) - 1
	if hasPrefill && end >= 0 && messages[end].Role == "assistant" {
		end--
	}

	current := 0
	previousRole := ""

	for i := end; i >= 0; i-- {
		if messages[i].Role == previousRole {
			continue
		}

		if previousRole != "" {
			current++
		}

		previousRole = messages[i].Role

		if current != depth && current != depth+2 {
			continue
		}

		if n := len(messages[i].Content); n > 0 {
			if messages[i].Content[n-1].CacheControl == nil {
				messages[i].Content[n-1].CacheControl = newCacheControl(ttl)
			}
		}

		if current == depth+2 {
			return
		}
	}
}
