package selector

// Placeholders replaced in the selector prompt.
const (
	EssentialPlaceholder = "{{ESSENTIAL_FILES_CONTENT}}"
	ManifestPlaceholder  = "{{REMAINING_MANIFEST_JSON}}"
)

// DefaultTemplate is the built-in prompt for the relevance-selection call.
const DefaultTemplate = `You are selecting which project files are relevant for the task below.

The following essential files are always provided in full:

{{ESSENTIAL_FILES_CONTENT}}

Below is a JSON manifest of the remaining candidate files, with their type,
summary and estimated token count:

{{REMAINING_MANIFEST_JSON}}

Reply ONLY with a JSON object of the form {"relevant_files": ["path", ...]},
ordered from most to least relevant. Only use paths that appear as keys in the
manifest above.`
