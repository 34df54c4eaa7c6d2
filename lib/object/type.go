// Copyright (C) 2024  AcaciaLinux contributors
//
// SPDX-License-Identifier: GPL-2.0-or-later

// Package object implements the Object header codec: the tagged Type and
// Compression enums, and the "AOBJ" on-disk header.
package object

import "fmt"

// Type tags the kind of payload an Object carries. The wire values are the
// fixed 16-bit codes below; any other value is a decoding error.
type Type uint16

const (
	TypeOther   Type = 0x0000
	TypeFormula Type = 0x0120
	TypePackage Type = 0x0130
	TypeIndex   Type = 0x0140
	TypeTree    Type = 0x0150
)

func (t Type) String() string {
	switch t {
	case TypeOther:
		return "other"
	case TypeFormula:
		return "formula"
	case TypePackage:
		return "package"
	case TypeIndex:
		return "index"
	case TypeTree:
		return "tree"
	default:
		return fmt.Sprintf("type(0x%04x)", uint16(t))
	}
}

// IsKnown reports whether t is one of the fixed wire codes.
func (t Type) IsKnown() bool {
	switch t {
	case TypeOther, TypeFormula, TypePackage, TypeIndex, TypeTree:
		return true
	default:
		return false
	}
}

// Compression tags the stream compression applied to an Object's payload.
type Compression uint16

const (
	CompressionNone Compression = 0
	CompressionXz   Compression = 1
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionXz:
		return "xz"
	default:
		return fmt.Sprintf("compression(0x%04x)", uint16(c))
	}
}

// IsKnown reports whether c is one of the fixed wire codes.
func (c Compression) IsKnown() bool {
	switch c {
	case CompressionNone, CompressionXz:
		return true
	default:
		return false
	}
}
