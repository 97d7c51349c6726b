package schema

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind is the semantic value space of a field.
type Kind int

const (
	KindUnknown Kind = iota
	KindText
	KindLongText
	KindInteger
	KindPositiveInteger
	KindPositiveSmallInteger
	KindSmallInteger
	KindDecimal
	KindBoolean
	KindDate
	KindDateTime
	KindTime
	KindURL
	KindEmail
	KindIPAddress
	KindSlug
	KindForeignKey
	KindAutoGenerated
)

// AllKinds lists every concrete kind in declaration order.
var AllKinds = []Kind{
	KindText,
	KindLongText,
	KindInteger,
	KindPositiveInteger,
	KindPositiveSmallInteger,
	KindSmallInteger,
	KindDecimal,
	KindBoolean,
	KindDate,
	KindDateTime,
	KindTime,
	KindURL,
	KindEmail,
	KindIPAddress,
	KindSlug,
	KindForeignKey,
	KindAutoGenerated,
}

var kindNames = map[Kind]string{
	KindText:                 "text",
	KindLongText:             "long_text",
	KindInteger:              "integer",
	KindPositiveInteger:      "positive_integer",
	KindPositiveSmallInteger: "positive_small_integer",
	KindSmallInteger:         "small_integer",
	KindDecimal:              "decimal",
	KindBoolean:              "boolean",
	KindDate:                 "date",
	KindDateTime:             "datetime",
	KindTime:                 "time",
	KindURL:                  "url",
	KindEmail:                "email",
	KindIPAddress:            "ip_address",
	KindSlug:                 "slug",
	KindForeignKey:           "foreign_key",
	KindAutoGenerated:        "auto",
}

// Django internal type names are accepted as aliases so catalogs exported
// from Django projects load unchanged.
var kindAliases = map[string]Kind{
	"charfield":                 KindText,
	"textfield":                 KindLongText,
	"integerfield":              KindInteger,
	"bigintegerfield":           KindInteger,
	"positiveintegerfield":      KindPositiveInteger,
	"positivesmallintegerfield": KindPositiveSmallInteger,
	"smallintegerfield":         KindSmallInteger,
	"decimalfield":              KindDecimal,
	"floatfield":                KindDecimal,
	"booleanfield":              KindBoolean,
	"nullbooleanfield":          KindBoolean,
	"datefield":                 KindDate,
	"datetimefield":             KindDateTime,
	"timefield":                 KindTime,
	"urlfield":                  KindURL,
	"emailfield":                KindEmail,
	"ipaddressfield":            KindIPAddress,
	"genericipaddressfield":     KindIPAddress,
	"slugfield":                 KindSlug,
	"foreignkey":                KindForeignKey,
	"onetoonefield":             KindForeignKey,
	"autofield":                 KindAutoGenerated,
	"bigautofield":              KindAutoGenerated,
	"string":                    KindText,
	"fk":                        KindForeignKey,
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// IsBoundedInteger reports whether values of this kind are drawn from an integer range policy.
func (k Kind) IsBoundedInteger() bool {
	return k == KindPositiveInteger || k == KindPositiveSmallInteger || k == KindSmallInteger
}

// IsPositive reports whether the kind rejects negative values.
func (k Kind) IsPositive() bool {
	return k == KindPositiveInteger || k == KindPositiveSmallInteger
}

// ParseKind resolves a kind name or alias.
func ParseKind(s string) (Kind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	if k, ok := kindAliases[name]; ok {
		return k, nil
	}
	return KindUnknown, fmt.Errorf("unknown field kind %q", s)
}

func (k Kind) MarshalYAML() (interface{}, error) {
	return k.String(), nil
}

func (k *Kind) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseKind(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*k = parsed
	return nil
}
