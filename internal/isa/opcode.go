// Package isa decodes the 32-bit instruction words of a RITE image.
// It is a leaf package: it knows the bit layouts and opcode numbering but
// nothing about records, pools or symbol tables.
package isa

import "fmt"

// Opcode is the 7-bit instruction discriminator held in the low bits of a word.
type Opcode uint8

const (
	OpNop       Opcode = iota // 0
	OpMove                    // 1
	OpLoadL                   // 2
	OpLoadI                   // 3
	OpLoadSym                 // 4
	OpLoadNil                 // 5
	OpLoadSelf                // 6
	OpLoadT                   // 7
	OpLoadF                   // 8
	OpGetGlobal               // 9
	OpSetGlobal               // 10
	OpGetSpecial              // 11
	OpSetSpecial              // 12
	OpGetIV                   // 13
	OpSetIV                   // 14
	OpGetCV                   // 15
	OpSetCV                   // 16
	OpGetConst                // 17
	OpSetConst                // 18
	OpGetMCnst                // 19
	OpSetMCnst                // 20
	OpGetUpvar                // 21
	OpSetUpvar                // 22
	OpJmp                     // 23
	OpJmpIf                   // 24
	OpJmpNot                  // 25
	OpOnErr                   // 26
	OpRescue                  // 27
	OpPopErr                  // 28
	OpRaise                   // 29
	OpEPush                   // 30
	OpEPop                    // 31
	OpSend                    // 32
	OpSendB                   // 33
	OpFSend                   // 34
	OpCall                    // 35
	OpSuper                   // 36
	OpArgAry                  // 37
	OpEnter                   // 38
	OpKArg                    // 39
	OpKDict                   // 40
	OpReturn                  // 41
	OpTailCall                // 42
	OpBlkPush                 // 43
	OpAdd                     // 44
	OpAddI                    // 45
	OpSub                     // 46
	OpSubI                    // 47
	OpMul                     // 48
	OpDiv                     // 49
	OpEq                      // 50
	OpLt                      // 51
	OpLe                      // 52
	OpGt                      // 53
	OpGe                      // 54
	OpArray                   // 55
	OpAryCat                  // 56
	OpAryPush                 // 57
	OpARef                    // 58
	OpASet                    // 59
	OpAPost                   // 60
	OpString                  // 61
	OpStrCat                  // 62
	OpHash                    // 63
	OpLambda                  // 64
	OpRange                   // 65
	OpOClass                  // 66
	OpClass                   // 67
	OpModule                  // 68
	OpExec                    // 69
	OpMethod                  // 70
	OpSClass                  // 71
	OpTClass                  // 72
	OpDebug                   // 73
	OpStop                    // 74
	OpErr                     // 75
)

// Layout names how the bits above the opcode are split into operands.
type Layout uint8

const (
	LayoutNone  Layout = iota // no operands
	LayoutABC                 // A:9 B:9 C:7
	LayoutABx                 // A:9 Bx:16
	LayoutABzCz               // A:9 Bz:14 Cz:2
	LayoutAx                  // Ax:25
)

func (l Layout) String() string {
	switch l {
	case LayoutABC:
		return "ABC"
	case LayoutABx:
		return "ABx"
	case LayoutABzCz:
		return "ABzCz"
	case LayoutAx:
		return "Ax"
	default:
		return "Z"
	}
}

type opInfo struct {
	name   string
	layout Layout
}

var opTable = [...]opInfo{
	OpNop:        {"NOP", LayoutNone},
	OpMove:       {"MOVE", LayoutABC},
	OpLoadL:      {"LOADL", LayoutABx},
	OpLoadI:      {"LOADI", LayoutABx},
	OpLoadSym:    {"LOADSYM", LayoutABx},
	OpLoadNil:    {"LOADNIL", LayoutABC},
	OpLoadSelf:   {"LOADSELF", LayoutABC},
	OpLoadT:      {"LOADT", LayoutABC},
	OpLoadF:      {"LOADF", LayoutABC},
	OpGetGlobal:  {"GETGLOBAL", LayoutABx},
	OpSetGlobal:  {"SETGLOBAL", LayoutABx},
	OpGetSpecial: {"GETSPECIAL", LayoutABx},
	OpSetSpecial: {"SETSPECIAL", LayoutABx},
	OpGetIV:      {"GETIV", LayoutABx},
	OpSetIV:      {"SETIV", LayoutABx},
	OpGetCV:      {"GETCV", LayoutABx},
	OpSetCV:      {"SETCV", LayoutABx},
	OpGetConst:   {"GETCONST", LayoutABx},
	OpSetConst:   {"SETCONST", LayoutABx},
	OpGetMCnst:   {"GETMCNST", LayoutABx},
	OpSetMCnst:   {"SETMCNST", LayoutABx},
	OpGetUpvar:   {"GETUPVAR", LayoutABC},
	OpSetUpvar:   {"SETUPVAR", LayoutABC},
	OpJmp:        {"JMP", LayoutABx},
	OpJmpIf:      {"JMPIF", LayoutABx},
	OpJmpNot:     {"JMPNOT", LayoutABx},
	OpOnErr:      {"ONERR", LayoutABx},
	OpRescue:     {"RESCUE", LayoutABC},
	OpPopErr:     {"POPERR", LayoutABC},
	OpRaise:      {"RAISE", LayoutABC},
	OpEPush:      {"EPUSH", LayoutABx},
	OpEPop:       {"EPOP", LayoutABC},
	OpSend:       {"SEND", LayoutABC},
	OpSendB:      {"SENDB", LayoutABC},
	OpFSend:      {"FSEND", LayoutABC},
	OpCall:       {"CALL", LayoutABC},
	OpSuper:      {"SUPER", LayoutABC},
	OpArgAry:     {"ARGARY", LayoutABx},
	OpEnter:      {"ENTER", LayoutAx},
	OpKArg:       {"KARG", LayoutABC},
	OpKDict:      {"KDICT", LayoutABC},
	OpReturn:     {"RETURN", LayoutABC},
	OpTailCall:   {"TAILCALL", LayoutABC},
	OpBlkPush:    {"BLKPUSH", LayoutABx},
	OpAdd:        {"ADD", LayoutABC},
	OpAddI:       {"ADDI", LayoutABC},
	OpSub:        {"SUB", LayoutABC},
	OpSubI:       {"SUBI", LayoutABC},
	OpMul:        {"MUL", LayoutABC},
	OpDiv:        {"DIV", LayoutABC},
	OpEq:         {"EQ", LayoutABC},
	OpLt:         {"LT", LayoutABC},
	OpLe:         {"LE", LayoutABC},
	OpGt:         {"GT", LayoutABC},
	OpGe:         {"GE", LayoutABC},
	OpArray:      {"ARRAY", LayoutABC},
	OpAryCat:     {"ARYCAT", LayoutABC},
	OpAryPush:    {"ARYPUSH", LayoutABC},
	OpARef:       {"AREF", LayoutABC},
	OpASet:       {"ASET", LayoutABC},
	OpAPost:      {"APOST", LayoutABC},
	OpString:     {"STRING", LayoutABx},
	OpStrCat:     {"STRCAT", LayoutABC},
	OpHash:       {"HASH", LayoutABC},
	OpLambda:     {"LAMBDA", LayoutABzCz},
	OpRange:      {"RANGE", LayoutABC},
	OpOClass:     {"OCLASS", LayoutABC},
	OpClass:      {"CLASS", LayoutABC},
	OpModule:     {"MODULE", LayoutABC},
	OpExec:       {"EXEC", LayoutABx},
	OpMethod:     {"METHOD", LayoutABC},
	OpSClass:     {"SCLASS", LayoutABC},
	OpTClass:     {"TCLASS", LayoutABC},
	OpDebug:      {"DEBUG", LayoutABC},
	OpStop:       {"STOP", LayoutNone},
	OpErr:        {"ERR", LayoutABx},
}

// Known reports whether op is part of the opcode table.
func (op Opcode) Known() bool {
	return int(op) < len(opTable)
}

// String returns the mnemonic, or OP_<n> for values outside the table.
func (op Opcode) String() string {
	if !op.Known() {
		return fmt.Sprintf("OP_%d", uint8(op))
	}
	return opTable[op].name
}

// Layout returns the operand layout used by op. Unknown opcodes report LayoutNone.
func (op Opcode) Layout() Layout {
	if !op.Known() {
		return LayoutNone
	}
	return opTable[op].layout
}
