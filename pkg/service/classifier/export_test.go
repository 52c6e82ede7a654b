package classifier

var (
	BuildSystemPrompt   = buildSystemPrompt
	BuildResponseSchema = buildResponseSchema
	Truncate            = truncate
)
