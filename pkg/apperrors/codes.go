package apperrors

type Code string

const (
	CodeUnknown            Code = "UNKNOWN"
	CodeInvalidArgument    Code = "INVALID_ARGUMENT"
	CodeNotFound           Code = "NOT_FOUND"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeForbidden          Code = "FORBIDDEN"
	CodeConflict           Code = "CONFLICT"
	CodeFailedPrecondition Code = "FAILED_PRECONDITION"
	CodeStoreCorrupt       Code = "STORE_CORRUPT"
	CodeStoreWrite         Code = "STORE_WRITE_FAILURE"
	CodeInternal           Code = "INTERNAL"
)
