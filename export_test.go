package dispatch

// Test-only exports for internal functions.
var (
	ParseLanguageID     = parseLanguageID
	PatternParams       = patternParams
	NormalizeBasePath   = normalizeBasePath
	GenerateOperationID = generateOperationID
	ResourceOf          = resourceOf
)
