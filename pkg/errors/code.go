package errors

// Service codes (AA).
const (
	// ServiceCommon is shared by every module.
	ServiceCommon = 0
	// ServiceMongoKit is the data-access layer (pkg/service).
	ServiceMongoKit = 21
	// ServiceTree is the example tree-node application.
	ServiceTree = 22
)

// Category codes (BB).
const (
	CategorySuccess    = 0
	CategoryRequest    = 1
	CategoryAuth       = 2
	CategoryPermission = 3
	CategoryResource   = 4
	CategoryConflict   = 5
	CategoryRateLimit  = 6
	CategoryInternal   = 7
	CategoryDatabase   = 8
	CategoryCache      = 9
	CategoryNetwork    = 10
	CategoryTimeout    = 11
	CategoryConfig     = 12
)

// MakeCode builds an AABBCCC error code.
func MakeCode(service, category, sequence int) int {
	return service*100000 + category*1000 + sequence
}

// ParseCode splits an error code into its service, category and sequence parts.
func ParseCode(code int) (service, category, sequence int) {
	service = code / 100000
	category = (code / 1000) % 100
	sequence = code % 1000
	return service, category, sequence
}

// GetService returns the service part of code.
func GetService(code int) int {
	s, _, _ := ParseCode(code)
	return s
}

// GetCategory returns the category part of code.
func GetCategory(code int) int {
	_, c, _ := ParseCode(code)
	return c
}

// GetSequence returns the sequence part of code.
func GetSequence(code int) int {
	_, _, s := ParseCode(code)
	return s
}

// IsSuccess reports whether code means success.
func IsSuccess(code int) bool {
	return code == 0
}

// IsClientError reports whether code belongs to a category caused by the caller.
func IsClientError(code int) bool {
	c := GetCategory(code)
	return c >= CategoryRequest && c <= CategoryRateLimit
}

// IsServerError reports whether code belongs to a server-side category.
func IsServerError(code int) bool {
	return GetCategory(code) >= CategoryInternal
}
