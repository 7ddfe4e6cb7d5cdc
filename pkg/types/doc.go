// Package types defines the tab, column-setting and row types, the storage
// interfaces the order tracker components are written against, and the
// standard error values shared by every package.
package types
