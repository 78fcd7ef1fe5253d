package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrNotFound is returned when a lookup expecting one record finds
	// none.
	ErrNotFound = errors.New("record not found")
	// ErrPartlyLoaded is returned when trying to save a record that was
	// fetched with a restricting projection.
	ErrPartlyLoaded = errors.New("cannot save a partly loaded record")
	// ErrTargetNil is returned when the passed target, which should be a
	// pointer, is passed as a nil value.
	ErrTargetNil = errors.New("target interface is nil")
	// ErrNonPointer is returned when a decoding target is not a pointer.
	ErrNonPointer = errors.New("target should be a pointer")
	// ErrCursorClosed is returned when trying to perform operations on a
	// closed [Cursor].
	ErrCursorClosed = errors.New("cursor is closed")
	// ErrScanBeforeNext is returned when calling [Cursor.Scan] before
	// calling [Cursor.Next].
	ErrScanBeforeNext = errors.New("called Scan before calling Next")
	// ErrNoID is returned when an operation needs the id of a record that
	// was never inserted.
	ErrNoID = errors.New("record has no id")
	// ErrAggregationUnsupported is returned when the driver does not
	// implement [Aggregator].
	ErrAggregationUnsupported = errors.New("driver does not support aggregation")
	// ErrIndexUnsupported is returned when the driver does not implement
	// [Indexer].
	ErrIndexUnsupported = errors.New("driver does not support indexes")
)

// ErrSchema is returned when a schema cannot be built, usually because two
// fields, own or inherited, share the same wire name.
type ErrSchema struct {
	Schema string
	Fields []string
	Reason string
}

// Error implements [error].
func (e ErrSchema) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("invalid schema %q: %s", e.Schema, e.Reason)
	}
	return fmt.Sprintf("invalid schema %q: %s: %s", e.Schema, e.Reason, strings.Join(e.Fields, ", "))
}

// ErrValidation is returned before any I/O when a record field is required and
// empty or holds a value its field type rejects.
type ErrValidation struct {
	Schema   string
	Field    string
	Value    any
	Required bool
}

// Error implements [error].
func (e ErrValidation) Error() string {
	if e.Required {
		return fmt.Sprintf("field %q of %q is required", e.Field, e.Schema)
	}
	return fmt.Sprintf("invalid value for field %q of %q: %v", e.Field, e.Schema, e.Value)
}

// ErrInvalidFilter is returned when a filter or a projection refers to an
// unknown field, uses an unknown operator or walks into a field that cannot
// hold sub-fields.
type ErrInvalidFilter struct {
	Filter string
	Reason string
}

// Error implements [error].
func (e ErrInvalidFilter) Error() string {
	return fmt.Sprintf("invalid filter %q: %s", e.Filter, e.Reason)
}

// ErrUnknownField is returned when a closed schema receives a key it does not
// declare.
type ErrUnknownField struct {
	Schema string
	Field  string
}

// Error implements [error].
func (e ErrUnknownField) Error() string {
	return fmt.Sprintf("%q has no field %q", e.Schema, e.Field)
}

// ErrLoadReferencesRequired is returned when reading a reference field of a
// lazy schema before its references were loaded.
type ErrLoadReferencesRequired struct {
	Schema string
	Field  string
}

// Error implements [error].
func (e ErrLoadReferencesRequired) Error() string {
	return fmt.Sprintf("the property %q of %q can't be accessed before loading references", e.Field, e.Schema)
}

// ErrRecordType is returned when a record of one schema is handed to an
// operation bound to another one.
type ErrRecordType struct {
	Want string
	Got  string
}

// Error implements [error].
func (e ErrRecordType) Error() string {
	return fmt.Sprintf("expected a record of %q, got %q", e.Want, e.Got)
}

// ErrDecode is returned by [Decoder.Decode] to easily wrap third party decoding
// errors.
type ErrDecode struct {
	Source any
	Target any
}

// Error implements [error].
func (e ErrDecode) Error() string {
	return fmt.Sprintf("cannot decode %T into %T", e.Source, e.Target)
}

// ErrEncode is returned by [FieldType.Encode] when a value does not have a Go
// type the field type knows how to store.
type ErrEncode struct {
	Value any
	Type  string
}

// Error implements [error].
func (e ErrEncode) Error() string {
	return fmt.Sprintf("cannot encode %T as %s", e.Value, e.Type)
}

// ErrDuplicateKey is the structured duplicate key error returned by drivers.
// Index may be empty if the store only reported a message.
type ErrDuplicateKey struct {
	Code    int
	Index   string
	Message string
}

// Error implements [error].
func (e ErrDuplicateKey) Error() string {
	return e.Message
}

// ErrUniqueViolation is returned when the store rejects a write because of a
// unique index.
type ErrUniqueViolation struct {
	Message    string
	ErrorCode  string
	ErrorType  string
	IndexName  string
	RecordType string
}

// Error implements [error].
func (e ErrUniqueViolation) Error() string {
	return fmt.Sprintf("the index %q was violated when trying to save this %q (error code: %s)", e.IndexName, e.RecordType, e.ErrorCode)
}

// E11000 duplicate key error index: test.Doc.$name_1 dup key: { : "x" }
var legacyDupKey = regexp.MustCompile(`^(\S+?)\s(.+?):\s*(.+?)\s+(.+)`)

// E11000 duplicate key error collection: test.Doc index: name_1 dup key: ...
var dupKey = regexp.MustCompile(`^(\S+?)\s(.+?)\s+collection:\s*(\S+)\s+index:\s*(\S+)`)

// ParseDuplicateKey extracts an [ErrUniqueViolation] from a duplicate key
// message. Both the legacy layout, with the full index namespace, and the
// current one, with collection and index apart, are understood. The index
// name is reported as "<db>.<collection>.$<index>" in both cases.
func ParseDuplicateKey(message string, recordType string) (ErrUniqueViolation, bool) {
	if m := dupKey.FindStringSubmatch(message); m != nil {
		return ErrUniqueViolation{
			Message:    message,
			ErrorCode:  m[1],
			ErrorType:  m[2],
			IndexName:  m[3] + ".$" + m[4],
			RecordType: recordType,
		}, true
	}
	if m := legacyDupKey.FindStringSubmatch(message); m != nil {
		return ErrUniqueViolation{
			Message:    message,
			ErrorCode:  m[1],
			ErrorType:  m[2],
			IndexName:  m[3],
			RecordType: recordType,
		}, true
	}
	return ErrUniqueViolation{}, false
}

// AsUniqueViolation converts a driver error into an [ErrUniqueViolation] if it
// reports a duplicate key, either as an [ErrDuplicateKey] or as a plain
// message with the E11000 code.
func AsUniqueViolation(err error, recordType string) (ErrUniqueViolation, bool) {
	if err == nil {
		return ErrUniqueViolation{}, false
	}
	var dup ErrDuplicateKey
	if errors.As(err, &dup) {
		if v, ok := ParseDuplicateKey(dup.Message, recordType); ok {
			if dup.Index != "" && !strings.Contains(v.IndexName, dup.Index) {
				v.IndexName = dup.Index
			}
			return v, true
		}
		return ErrUniqueViolation{
			Message:    dup.Message,
			ErrorCode:  fmt.Sprintf("E%d", dup.Code),
			ErrorType:  "duplicate key error",
			IndexName:  dup.Index,
			RecordType: recordType,
		}, true
	}
	msg := err.Error()
	if !strings.HasPrefix(msg, "E11000") {
		return ErrUniqueViolation{}, false
	}
	return ParseDuplicateKey(msg, recordType)
}

// ErrDatafileName is returned when a snapshot file name cannot be used.
type ErrDatafileName struct {
	Name   string
	Reason string
}

// Error implements [error].
func (e ErrDatafileName) Error() string {
	return fmt.Sprintf("invalid file name %q: %s", e.Name, e.Reason)
}

// ErrFlushToStorage is returned when a written file cannot be synced or
// closed.
type ErrFlushToStorage struct {
	ErrorOnFsync error
	ErrorOnClose error
}

// Error implements [error].
func (e ErrFlushToStorage) Error() string {
	err := e.ErrorOnFsync
	if err == nil {
		err = e.ErrorOnClose
	}
	return fmt.Sprint("storage flush error: ", err)
}

// Unwrap returns the underlying error.
func (e ErrFlushToStorage) Unwrap() error {
	if e.ErrorOnFsync != nil {
		return e.ErrorOnFsync
	}
	return e.ErrorOnClose
}

// ErrFieldPath is returned by the in-memory driver when a dotted path cannot
// be walked or created in a document.
type ErrFieldPath struct {
	Path   string
	Reason string
}

// Error implements [error].
func (e ErrFieldPath) Error() string {
	return fmt.Sprintf("cannot use the part %q: %s", e.Path, e.Reason)
}
