package wire

import "fmt"

// Code is a response code in CoAP encoding (class<<5 | detail).
type Code uint8

const (
	CodeCreated Code = 2<<5 | 1
	CodeDeleted Code = 2<<5 | 2
	CodeChanged Code = 2<<5 | 4
	CodeContent Code = 2<<5 | 5

	CodeBadRequest               Code = 4<<5 | 0
	CodeUnauthorized             Code = 4<<5 | 1
	CodeNotFound                 Code = 4<<5 | 4
	CodeMethodNotAllowed         Code = 4<<5 | 5
	CodeNotAcceptable            Code = 4<<5 | 6
	CodeRequestEntityIncomplete  Code = 4<<5 | 8
	CodePreconditionFailed       Code = 4<<5 | 12
	CodeRequestEntityTooLarge    Code = 4<<5 | 13
	CodeUnsupportedContentFormat Code = 4<<5 | 15

	CodeInternalServerError Code = 5<<5 | 0
	CodeServiceUnavailable  Code = 5<<5 | 3
	CodeGatewayTimeout      Code = 5<<5 | 4
)

var codeNames = map[Code]string{
	CodeCreated:                  "CREATED",
	CodeDeleted:                  "DELETED",
	CodeChanged:                  "CHANGED",
	CodeContent:                  "CONTENT",
	CodeBadRequest:               "BAD_REQUEST",
	CodeUnauthorized:             "UNAUTHORIZED",
	CodeNotFound:                 "NOT_FOUND",
	CodeMethodNotAllowed:         "METHOD_NOT_ALLOWED",
	CodeNotAcceptable:            "NOT_ACCEPTABLE",
	CodeRequestEntityIncomplete:  "REQUEST_ENTITY_INCOMPLETE",
	CodePreconditionFailed:       "PRECONDITION_FAILED",
	CodeRequestEntityTooLarge:    "REQUEST_ENTITY_TOO_LARGE",
	CodeUnsupportedContentFormat: "UNSUPPORTED_CONTENT_FORMAT",
	CodeInternalServerError:      "INTERNAL_SERVER_ERROR",
	CodeServiceUnavailable:       "SERVICE_UNAVAILABLE",
	CodeGatewayTimeout:           "GATEWAY_TIMEOUT",
}

// Class returns the code class (2 = success, 4 = client error, 5 = server error).
func (c Code) Class() int {
	return int(c >> 5)
}

// Detail returns the code detail.
func (c Code) Detail() int {
	return int(c & 0x1f)
}

// String returns the dotted CoAP form, e.g. "2.05".
func (c Code) String() string {
	return fmt.Sprintf("%d.%02d", c.Class(), c.Detail())
}

// Number returns the decimal form, e.g. 205 for 2.05.
func (c Code) Number() int {
	return c.Class()*100 + c.Detail()
}

// Name returns the symbolic name, e.g. "CONTENT".
func (c Code) Name() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "UNKNOWN"
}

// IsSuccess returns true for 2.xx codes.
func (c Code) IsSuccess() bool {
	return c.Class() == 2
}

// IsError returns true if the code does not indicate success.
func (c Code) IsError() bool {
	return !c.IsSuccess()
}
