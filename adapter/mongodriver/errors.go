package mongodriver

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/vinicius-lino-figueiredo/godm/domain"
)

// duplicateCodes are the server codes reporting a unique index violation.
var duplicateCodes = []int{11000, 11001, 12582}

func isDuplicateCode(code int) bool {
	for _, c := range duplicateCodes {
		if c == code {
			return true
		}
	}
	return false
}

// duplicateKey extracts the first duplicate key error reported by the
// server.
func duplicateKey(err error) (domain.ErrDuplicateKey, bool) {
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if isDuplicateCode(e.Code) {
				return domain.ErrDuplicateKey{Code: e.Code, Message: e.Message}, true
			}
		}
	}
	var bwe mongo.BulkWriteException
	if errors.As(err, &bwe) {
		for _, e := range bwe.WriteErrors {
			if isDuplicateCode(e.Code) {
				return domain.ErrDuplicateKey{Code: e.Code, Message: e.Message}, true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && isDuplicateCode(int(ce.Code)) {
		return domain.ErrDuplicateKey{Code: int(ce.Code), Message: ce.Message}, true
	}
	return domain.ErrDuplicateKey{}, false
}

// wrap turns duplicate key errors into [domain.ErrDuplicateKey], keeping the
// original error in the chain. Other errors are returned unchanged.
func wrap(err error) error {
	if err == nil {
		return nil
	}
	if dup, ok := duplicateKey(err); ok {
		return fmt.Errorf("%w: %w", dup, err)
	}
	return err
}
