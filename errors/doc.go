// Package errors provides the error taxonomy shared by every llmx package.
//
// All failures surfaced by adapters, the cache and the dispatcher are
// *AppError values carrying a kind (Code), the provider involved, the
// upstream HTTP status when there is one and a retryable flag that the
// retry policy consults. Use IsKind to branch on the kind of a wrapped error.
package errors
