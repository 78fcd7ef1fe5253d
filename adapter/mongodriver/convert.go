package mongodriver

import (
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vinicius-lino-figueiredo/godm/domain"
)

// toBSON converts a wire value into the types the bson codec expects. Sorts
// become ordered documents.
func toBSON(v any) any {
	switch t := v.(type) {
	case domain.M:
		res := make(bson.M, len(t))
		for k, item := range t {
			res[k] = toBSON(item)
		}
		return res
	case []any:
		res := make(bson.A, len(t))
		for n, item := range t {
			res[n] = toBSON(item)
		}
		return res
	case domain.Sort:
		return sortToBSON(t)
	case *regexp.Regexp:
		return regexToBSON(t)
	default:
		return v
	}
}

func sortToBSON(sort domain.Sort) bson.D {
	res := make(bson.D, len(sort))
	for n, s := range sort {
		res[n] = bson.E{Key: s.Key, Value: s.Order}
	}
	return res
}

// regexToBSON moves the leading (?flags) group of a Go pattern into the
// options of a bson regex.
func regexToBSON(re *regexp.Regexp) primitive.Regex {
	pattern := re.String()
	if strings.HasPrefix(pattern, "(?") {
		if end := strings.Index(pattern, ")"); end > 2 && !strings.Contains(pattern[2:end], ":") {
			return primitive.Regex{Pattern: pattern[end+1:], Options: pattern[2:end]}
		}
	}
	return primitive.Regex{Pattern: pattern}
}

func docToBSON(doc domain.M) bson.M {
	if doc == nil {
		return bson.M{}
	}
	return toBSON(doc).(bson.M)
}

// fromBSON converts a decoded bson value into wire values. Dates become
// time.Time and binary values []byte. Object ids are kept as they are.
func fromBSON(v any) any {
	switch t := v.(type) {
	case bson.M:
		res := make(domain.M, len(t))
		for k, item := range t {
			res[k] = fromBSON(item)
		}
		return res
	case bson.D:
		res := make(domain.M, len(t))
		for _, e := range t {
			res[e.Key] = fromBSON(e.Value)
		}
		return res
	case bson.A:
		res := make([]any, len(t))
		for n, item := range t {
			res[n] = fromBSON(item)
		}
		return res
	case primitive.DateTime:
		return t.Time()
	case primitive.Binary:
		return t.Data
	case primitive.Decimal128:
		return t.String()
	default:
		return v
	}
}

func docFromBSON(doc bson.M) domain.M {
	return fromBSON(doc).(domain.M)
}

func hasOperator(doc domain.M) bool {
	for k := range doc {
		if strings.HasPrefix(k, "$") {
			return true
		}
	}
	return false
}
