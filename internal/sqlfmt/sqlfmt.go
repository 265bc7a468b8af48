// Package sqlfmt uppercases SQL keywords while preserving the camelCase
// spelling of ClickHouse built-in functions, which a naive keyword
// uppercaser would mangle.
package sqlfmt

import (
	"strings"
	"unicode"
)

var keywords = []string{
	"select", "from", "where", "group", "by", "order", "having", "limit",
	"offset", "join", "left", "right", "inner", "outer", "full", "cross",
	"on", "as", "and", "or", "not", "in", "is", "null", "between", "like",
	"ilike", "union", "all", "distinct", "insert", "into", "values",
	"create", "table", "view", "materialized", "if", "exists", "drop",
	"alter", "with", "case", "when", "then", "else", "end", "using",
	"prewhere", "final", "sample", "any", "asc", "desc", "format",
	"settings", "interval", "engine", "partition", "primary", "key",
	"ttl", "delete", "update", "set",
}

// clickhouseFunctions are built-ins whose casing must survive keyword
// uppercasing.
var clickhouseFunctions = []string{
	// Conditional / nullable
	"multiIf", "ifNull", "nullIf", "assumeNotNull", "toNullable", "coalesce",
	"isNull", "isNotNull",
	// Date and time
	"toDate", "toDateTime", "toDateTime64", "toDateOrNull", "toDateTimeOrNull",
	"toStartOfDay", "toStartOfHour", "toStartOfMinute", "toStartOfMonth",
	"toStartOfQuarter", "toStartOfYear", "toStartOfWeek", "toMonday",
	"toYear", "toMonth", "toWeek", "toDayOfMonth", "toDayOfWeek", "toDayOfYear",
	"toHour", "toMinute", "toSecond", "toUnixTimestamp",
	"formatDateTime", "parseDateTimeBestEffort", "parseDateTime64BestEffort",
	"dateDiff", "dateAdd", "dateSub", "timeSlot",
	"toIntervalSecond", "toIntervalMinute", "toIntervalHour", "toIntervalDay",
	"toIntervalWeek", "toIntervalMonth", "toIntervalQuarter", "toIntervalYear",
	// Type conversion
	"toString", "toInt8", "toInt16", "toInt32", "toInt64", "toInt128", "toInt256",
	"toUInt8", "toUInt16", "toUInt32", "toUInt64", "toUInt128", "toUInt256",
	"toFloat32", "toFloat64", "toDecimal32", "toDecimal64", "toDecimal128",
	"toFixedString", "toUUID", "toIPv4", "toIPv6",
	"accurateCast", "accurateCastOrNull",
	// Aggregates
	"countIf", "sumIf", "avgIf", "minIf", "maxIf", "anyIf",
	"uniq", "uniqExact", "uniqCombined", "uniqCombined64", "uniqHLL12",
	"groupArray", "groupArrayInsertAt", "groupUniqArray",
	"groupBitAnd", "groupBitOr", "groupBitXor",
	"argMin", "argMax",
	"quantile", "quantiles", "quantileExact", "quantileTiming",
	// Strings
	"replaceAll", "replaceOne", "replaceRegexpAll", "replaceRegexpOne",
	"splitByChar", "splitByString", "splitByRegexp",
	"arrayStringConcat", "extractAll", "extractAllGroups",
	"trimLeft", "trimRight", "trimBoth",
	"lowerUTF8", "upperUTF8", "reverseUTF8",
	"substringUTF8", "lengthUTF8", "positionUTF8",
	"positionCaseInsensitive", "multiSearchAny", "multiMatchAny",
	"normalizeQuery", "normalizedQueryHash",
	// Arrays
	"arrayJoin", "arrayConcat", "arrayElement", "arrayPushBack", "arrayPushFront",
	"arrayPopBack", "arrayPopFront", "arraySlice", "arrayReverse",
	"arrayCompact", "arrayDistinct", "arrayEnumerate", "arrayEnumerateDense",
	"arrayEnumerateUniq", "arrayReduce",
	"arrayFilter", "arrayExists", "arrayAll", "arrayFirst", "arrayFirstIndex",
	"arraySum", "arrayAvg", "arrayCount", "arrayMin", "arrayMax",
	"arraySort", "arrayReverseSort", "arrayUniq", "arrayDifference",
	"hasAll", "hasAny", "hasSubstr", "indexOf", "arrayZip",
	// JSON
	"JSONExtract", "JSONExtractString", "JSONExtractInt", "JSONExtractFloat",
	"JSONExtractBool", "JSONExtractRaw", "JSONHas", "JSONLength", "JSONType",
	"JSONExtractKeys",
	// Hashing
	"cityHash64", "sipHash64", "sipHash128", "halfMD5",
	"murmurHash3_32", "murmurHash3_64", "murmurHash3_128",
	"xxHash32", "xxHash64", "farmHash64",
	// Bit operations
	"bitAnd", "bitOr", "bitXor", "bitNot", "bitShiftLeft", "bitShiftRight",
	"bitCount", "bitTest",
	// IP addresses
	"IPv4NumToString", "IPv4StringToNum", "IPv4ToIPv6",
	"IPv6NumToString", "IPv6StringToNum", "isIPv4String", "isIPv6String",
	// Dictionaries
	"dictGet", "dictGetOrDefault", "dictGetOrNull", "dictHas",
	// Misc
	"runningDifference", "runningAccumulate",
	"rowNumberInAllBlocks", "rowNumberInBlock",
	"formatReadableSize", "generateUUIDv4",
	"isFinite", "isInfinite", "isNaN",
	"toTypeName", "materialize", "ignore",
	"currentDatabase", "currentUser", "hostName", "uptime", "version",
	"throwIf", "identity",
}

var (
	keywordSet  = make(map[string]bool, len(keywords))
	funcCaseMap = make(map[string]string, len(clickhouseFunctions))
)

func init() {
	for _, k := range keywords {
		keywordSet[k] = true
	}
	for _, f := range clickhouseFunctions {
		funcCaseMap[strings.ToLower(f)] = f
	}
}

// Format rewrites word tokens outside string literals: known keywords are
// uppercased, known ClickHouse functions get their canonical casing, and
// everything else (identifiers) passes through untouched.
func Format(sql string) string {
	var b strings.Builder
	b.Grow(len(sql))

	runes := []rune(sql)
	i := 0
	for i < len(runes) {
		r := runes[i]

		// String literals pass through verbatim, including escaped quotes.
		if r == '\'' || r == '`' || r == '"' {
			quote := r
			b.WriteRune(r)
			i++
			for i < len(runes) {
				b.WriteRune(runes[i])
				if runes[i] == '\\' && i+1 < len(runes) {
					i++
					b.WriteRune(runes[i])
					i++
					continue
				}
				if runes[i] == quote {
					i++
					break
				}
				i++
			}
			continue
		}

		if !isWordStart(r) {
			b.WriteRune(r)
			i++
			continue
		}

		start := i
		for i < len(runes) && isWordRune(runes[i]) {
			i++
		}
		word := string(runes[start:i])

		// A word directly followed by '(' is a function call.
		j := i
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		isCall := j < len(runes) && runes[j] == '('

		lower := strings.ToLower(word)
		switch {
		case isCall && funcCaseMap[lower] != "":
			b.WriteString(funcCaseMap[lower])
		case keywordSet[lower]:
			b.WriteString(strings.ToUpper(word))
		default:
			b.WriteString(word)
		}
	}
	return b.String()
}

func isWordStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
