// Package filesystem provides the operating system backed file access shared by the
// repository inspector, the configuration resolver, and the build metadata generator.
package filesystem
