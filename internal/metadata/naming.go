package metadata

import (
	"strings"

	"github.com/go-openapi/inflect"
)

// NamespaceSeparator separates module path segments in model class names.
const NamespaceSeparator = "::"

// Demodulize strips the namespace from a class name: "Admin::User" -> "User".
func Demodulize(className string) string {
	if i := strings.LastIndex(className, NamespaceSeparator); i >= 0 {
		return className[i+len(NamespaceSeparator):]
	}
	return className
}

// Namespace returns the namespace of a class name, or "" when it has none.
func Namespace(className string) string {
	if i := strings.LastIndex(className, NamespaceSeparator); i >= 0 {
		return className[:i]
	}
	return ""
}

// Underscore converts a class name to snake case, ignoring the namespace.
func Underscore(className string) string {
	return inflect.Underscore(Demodulize(className))
}

// Classify converts a table or association name to a class name:
// "blog_posts" -> "BlogPost".
func Classify(name string) string {
	return inflect.Camelize(inflect.Singularize(name))
}

// Tableize converts a class name to its conventional table name:
// "BlogPost" -> "blog_posts".
func Tableize(className string) string {
	return inflect.Pluralize(Underscore(className))
}

// ForeignKeyName is the conventional foreign key column for a class name:
// "Admin::User" -> "user_id".
func ForeignKeyName(className string) string {
	return Underscore(className) + "_id"
}
