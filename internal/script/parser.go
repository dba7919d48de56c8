package script

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/CaptianFluffy100/net-sentinel/internal/probeerr"
	"github.com/CaptianFluffy100/net-sentinel/internal/value"
)

const (
	maxByte  = 0xFF
	maxShort = 0xFFFF
	maxInt32 = math.MaxUint32
)

// parser walks a flat slice of lexed lines, tracking a cursor. Blocks do
// not nest (except CODE's FOR/IF regions, handled separately via
// indentation), so the top-level loop is a simple dispatch on keyword.
type parser struct {
	lines []line
	pos   int
}

// Parse turns script text into a Script, or a *probeerr.SyntaxError if
// the text violates the block or command grammar.
func Parse(src string) (*Script, error) {
	p := &parser{lines: lexLines(src)}
	var sc Script
	for !p.atEnd() {
		kw := fields(p.cur().text)[0]
		switch kw {
		case "CONNECTION_CLOSE":
			sc.Blocks = append(sc.Blocks, Block{Kind: BlockConnectionClose, Line: p.cur().num})
			p.pos++
		case "PACKET_START":
			b, err := p.parsePacketBlock()
			if err != nil {
				return nil, err
			}
			sc.Blocks = append(sc.Blocks, *b)
		case "HTTP_START":
			b, err := p.parseHTTPBlock()
			if err != nil {
				return nil, err
			}
			sc.Blocks = append(sc.Blocks, *b)
		case "RESPONSE_START":
			b, err := p.parseResponseBlock()
			if err != nil {
				return nil, err
			}
			sc.Blocks = append(sc.Blocks, *b)
		case "CODE_START":
			b, err := p.parseCodeBlock()
			if err != nil {
				return nil, err
			}
			sc.Blocks = append(sc.Blocks, *b)
		case "OUTPUT_SUCCESS":
			b, err := p.parseOutputBlock(BlockOutputSuccess, "OUTPUT_SUCCESS")
			if err != nil {
				return nil, err
			}
			sc.Blocks = append(sc.Blocks, *b)
		case "OUTPUT_ERROR":
			b, err := p.parseOutputBlock(BlockOutputError, "OUTPUT_ERROR")
			if err != nil {
				return nil, err
			}
			sc.Blocks = append(sc.Blocks, *b)
		default:
			return nil, probeerr.NewSyntaxError(p.cur().num, "unexpected token %q outside any block", kw)
		}
	}
	return &sc, nil
}

func (p *parser) atEnd() bool { return p.pos >= len(p.lines) }

func (p *parser) cur() line { return p.lines[p.pos] }

// expect consumes the current line, requiring its full text to equal want.
func (p *parser) expect(want string) error {
	if p.atEnd() {
		return probeerr.NewSyntaxError(p.lines[len(p.lines)-1].num, "expected %q, reached end of script", want)
	}
	if p.cur().text != want {
		return probeerr.NewSyntaxError(p.cur().num, "expected %q, got %q", want, p.cur().text)
	}
	p.pos++
	return nil
}

// --- PACKET ---

func (p *parser) parsePacketBlock() (*Block, error) {
	start := p.cur()
	p.pos++
	pb := &PacketBlock{}
	for {
		if p.atEnd() {
			return nil, probeerr.NewSyntaxError(start.num, "PACKET_START at line %d has no matching PACKET_END", start.num)
		}
		if p.cur().text == "PACKET_END" {
			p.pos++
			break
		}
		wc, err := p.parseWriteCommand()
		if err != nil {
			return nil, err
		}
		pb.Writes = append(pb.Writes, *wc)
	}
	return &Block{Kind: BlockPacket, Line: start.num, Packet: pb}, nil
}

func (p *parser) parseWriteCommand() (*WriteCommand, error) {
	ln := p.cur()
	kw, rest := splitFirst(ln.text)
	wc := &WriteCommand{Line: ln.num}
	p.pos++

	switch kw {
	case "WRITE_BYTE":
		wc.Op = WriteByte
		num, err := p.parseNumOperand(rest, false, maxByte, ln.num)
		if err != nil {
			return nil, err
		}
		wc.Num = num
	case "WRITE_SHORT":
		wc.Op = WriteShort
		num, err := p.parseNumOperand(rest, false, maxShort, ln.num)
		if err != nil {
			return nil, err
		}
		wc.Num = num
	case "WRITE_SHORT_BE":
		wc.Op = WriteShortBE
		num, err := p.parseNumOperand(rest, false, maxShort, ln.num)
		if err != nil {
			return nil, err
		}
		wc.Num = num
	case "WRITE_INT":
		wc.Op = WriteInt
		num, err := p.parseNumOperand(rest, true, maxInt32, ln.num)
		if err != nil {
			return nil, err
		}
		wc.Num = num
	case "WRITE_INT_BE":
		wc.Op = WriteIntBE
		num, err := p.parseNumOperand(rest, true, maxInt32, ln.num)
		if err != nil {
			return nil, err
		}
		wc.Num = num
	case "WRITE_VARINT":
		wc.Op = WriteVarInt
		num, err := p.parseNumOperand(rest, true, math.MaxUint64, ln.num)
		if err != nil {
			return nil, err
		}
		wc.Num = num
	case "WRITE_STRING":
		wc.Op = WriteString
		str, err := p.parseStrOperand(rest, ln.num)
		if err != nil {
			return nil, err
		}
		wc.Str = str
	case "WRITE_STRING_LEN":
		wc.Op = WriteStringLen
		strTok, lenTok, err := splitTwo(rest, ln.num)
		if err != nil {
			return nil, err
		}
		str, err := p.parseStrOperand(strTok, ln.num)
		if err != nil {
			return nil, err
		}
		num, err := p.parseNumOperand(lenTok, false, math.MaxUint64, ln.num)
		if err != nil {
			return nil, err
		}
		wc.Str = str
		wc.StrLen = num
	case "WRITE_BYTES":
		wc.Op = WriteBytes
		b, err := decodeWireHex(rest, ln.num)
		if err != nil {
			return nil, err
		}
		wc.Bytes = b
	default:
		return nil, probeerr.NewSyntaxError(ln.num, "unknown command %q inside PACKET block", kw)
	}
	return wc, nil
}

// --- RESPONSE ---

func (p *parser) parseResponseBlock() (*Block, error) {
	start := p.cur()
	p.pos++
	rb := &ResponseBlock{}
	for {
		if p.atEnd() {
			return nil, probeerr.NewSyntaxError(start.num, "RESPONSE_START at line %d has no matching RESPONSE_END", start.num)
		}
		if p.cur().text == "RESPONSE_END" {
			p.pos++
			break
		}
		rc, err := p.parseReadCommand()
		if err != nil {
			return nil, err
		}
		rb.Reads = append(rb.Reads, *rc)
	}
	return &Block{Kind: BlockResponse, Line: start.num, Response: rb}, nil
}

func (p *parser) parseReadCommand() (*ReadCommand, error) {
	ln := p.cur()
	kw, rest := splitFirst(ln.text)
	rc := &ReadCommand{Line: ln.num}
	p.pos++

	simpleVar := func(op ReadOp) error {
		if !value.IsIdentifier(rest) {
			return probeerr.NewSyntaxError(ln.num, "%s expects a destination variable name, got %q", kw, rest)
		}
		rc.Op = op
		rc.VarName = rest
		return nil
	}

	switch kw {
	case "READ_BYTE":
		return rc, simpleVar(ReadByteOp)
	case "READ_SHORT":
		return rc, simpleVar(ReadShortOp)
	case "READ_SHORT_BE":
		return rc, simpleVar(ReadShortBEOp)
	case "READ_INT":
		return rc, simpleVar(ReadIntOp)
	case "READ_INT_BE":
		return rc, simpleVar(ReadIntBEOp)
	case "READ_VARINT":
		return rc, simpleVar(ReadVarIntOp)
	case "READ_STRING_NULL":
		return rc, simpleVar(ReadStringNullOp)
	case "READ_BODY":
		return rc, simpleVar(ReadBodyOp)
	case "READ_BODY_JSON":
		return rc, simpleVar(ReadBodyJSONOp)
	case "READ_STRING":
		varTok, lenTok, err := splitTwo(rest, ln.num)
		if err != nil {
			return nil, err
		}
		if !value.IsIdentifier(varTok) {
			return nil, probeerr.NewSyntaxError(ln.num, "READ_STRING expects a destination variable name, got %q", varTok)
		}
		num, err := p.parseNumOperand(lenTok, false, math.MaxUint64, ln.num)
		if err != nil {
			return nil, err
		}
		rc.Op = ReadStringOp
		rc.VarName = varTok
		rc.Length = num
		return rc, nil
	case "SKIP_BYTES":
		num, err := p.parseNumOperand(rest, false, math.MaxUint64, ln.num)
		if err != nil {
			return nil, err
		}
		rc.Op = SkipBytesOp
		rc.Length = num
		return rc, nil
	case "EXPECT_BYTE":
		n, err := parseIntToken(rest)
		if err != nil || n > maxByte {
			return nil, probeerr.NewSyntaxError(ln.num, "EXPECT_BYTE expects a byte literal in [0,255], got %q", rest)
		}
		rc.Op = ExpectByteOp
		rc.ExpectByte = byte(n)
		return rc, nil
	case "EXPECT_MAGIC":
		b, err := decodeWireHex(rest, ln.num)
		if err != nil {
			return nil, err
		}
		rc.Op = ExpectMagicOp
		rc.ExpectMagic = b
		return rc, nil
	case "EXPECT_STATUS":
		n, err := parseIntToken(rest)
		if err != nil {
			return nil, probeerr.NewSyntaxError(ln.num, "EXPECT_STATUS expects an integer status code, got %q", rest)
		}
		rc.Op = ExpectStatusOp
		rc.ExpectStatus = int(n)
		return rc, nil
	case "EXPECT_HEADER":
		key, val, err := splitTwo(rest, ln.num)
		if err != nil {
			return nil, err
		}
		rc.Op = ExpectHeaderOp
		rc.HeaderKey = key
		rc.HeaderValue = unquote(val)
		return rc, nil
	default:
		return nil, probeerr.NewSyntaxError(ln.num, "unknown command %q inside RESPONSE block", kw)
	}
}

// --- HTTP ---

func (p *parser) parseHTTPBlock() (*Block, error) {
	start := p.cur()
	toks := fields(start.text)
	if len(toks) < 3 || toks[1] != "REQUEST" {
		return nil, probeerr.NewSyntaxError(start.num, "HTTP_START expects \"HTTP_START REQUEST <method> <path>\", got %q", start.text)
	}
	hb := &HTTPBlock{}
	if toks[2] == "CUSTOM" {
		if len(toks) < 5 {
			return nil, probeerr.NewSyntaxError(start.num, "HTTP_START REQUEST CUSTOM expects a method and a path")
		}
		hb.Method = toks[3]
		hb.Path = toks[4]
	} else {
		if len(toks) < 4 {
			return nil, probeerr.NewSyntaxError(start.num, "HTTP_START REQUEST expects a method and a path")
		}
		hb.Method = toks[2]
		hb.Path = toks[3]
	}
	p.pos++

	for {
		if p.atEnd() {
			return nil, probeerr.NewSyntaxError(start.num, "HTTP_START at line %d has no matching HTTP_END", start.num)
		}
		ln := p.cur()
		kw, rest := splitFirst(ln.text)
		switch kw {
		case "HTTP_END":
			p.pos++
			return &Block{Kind: BlockHTTPRequest, Line: start.num, HTTP: hb}, nil
		case "PARAM":
			key, val, err := splitTwo(rest, ln.num)
			if err != nil {
				return nil, err
			}
			hb.Params = append(hb.Params, KV{Key: key, Value: unquote(val)})
			p.pos++
		case "HEADER":
			key, val, err := splitTwo(rest, ln.num)
			if err != nil {
				return nil, err
			}
			hb.Headers = append(hb.Headers, KV{Key: key, Value: unquote(val)})
			p.pos++
		case "BODY_START":
			if err := p.parseHTTPBody(hb); err != nil {
				return nil, err
			}
		default:
			return nil, probeerr.NewSyntaxError(ln.num, "unknown command %q inside HTTP block", kw)
		}
	}
}

func (p *parser) parseHTTPBody(hb *HTTPBlock) error {
	start := p.cur()
	toks := fields(start.text)
	if len(toks) != 3 || toks[1] != "TYPE" {
		return probeerr.NewSyntaxError(start.num, "BODY_START expects \"BODY_START TYPE FORM|RAW\", got %q", start.text)
	}
	switch toks[2] {
	case "FORM", "RAW":
		hb.BodyType = toks[2]
	default:
		return probeerr.NewSyntaxError(start.num, "unknown BODY_START TYPE %q, want FORM or RAW", toks[2])
	}
	p.pos++
	for {
		if p.atEnd() {
			return probeerr.NewSyntaxError(start.num, "BODY_START at line %d has no matching BODY_END", start.num)
		}
		ln := p.cur()
		if ln.text == "BODY_END" {
			p.pos++
			return nil
		}
		kw, rest := splitFirst(ln.text)
		if kw != "DATA" {
			return probeerr.NewSyntaxError(ln.num, "unknown command %q inside BODY block", kw)
		}
		hb.BodyData = append(hb.BodyData, unquote(rest))
		p.pos++
	}
}

// --- OUTPUT ---

func (p *parser) parseOutputBlock(kind BlockKind, opener string) (*Block, error) {
	start := p.cur()
	p.pos++
	ob := &OutputBlock{}
	for {
		if p.atEnd() {
			return nil, probeerr.NewSyntaxError(start.num, "%s at line %d has no matching OUTPUT_END", opener, start.num)
		}
		ln := p.cur()
		if ln.text == "OUTPUT_END" {
			p.pos++
			break
		}
		kw, rest := splitFirst(ln.text)
		switch kw {
		case "JSON_OUTPUT":
			if !value.IsIdentifier(rest) {
				return nil, probeerr.NewSyntaxError(ln.num, "JSON_OUTPUT expects a variable name, got %q", rest)
			}
			ob.Commands = append(ob.Commands, OutputCmd{Kind: OutputJSON, Line: ln.num, Var: rest})
		case "RETURN":
			ob.Commands = append(ob.Commands, OutputCmd{Kind: OutputReturn, Line: ln.num, Template: unquote(rest)})
		default:
			return nil, probeerr.NewSyntaxError(ln.num, "unknown command %q inside %s block", kw, opener)
		}
		p.pos++
	}
	return &Block{Kind: kind, Line: start.num, Output: ob}, nil
}

// --- CODE ---

func (p *parser) parseCodeBlock() (*Block, error) {
	start := p.cur()
	p.pos++
	var stmts []CodeStmt
	for {
		if p.atEnd() {
			return nil, probeerr.NewSyntaxError(start.num, "CODE_START at line %d has no matching CODE_END", start.num)
		}
		if p.cur().text == "CODE_END" {
			p.pos++
			break
		}
		st, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, st)
	}
	return &Block{Kind: BlockCode, Line: start.num, Code: &CodeBlock{Statements: stmts}}, nil
}

var declKeywords = map[string]DeclType{
	"STRING": DeclString,
	"INT":    DeclInt,
	"BYTE":   DeclByte,
	"FLOAT":  DeclFloat,
	"ARRAY":  DeclArray,
}

func (p *parser) parseStmt() (CodeStmt, error) {
	ln := p.cur()
	kw, rest := splitFirst(ln.text)

	if dt, ok := declKeywords[kw]; ok {
		p.pos++
		name, exprTok, err := splitAssign(rest, ln.num)
		if err != nil {
			return CodeStmt{}, err
		}
		expr, err := parseExpr(exprTok, ln.num)
		if err != nil {
			return CodeStmt{}, err
		}
		return CodeStmt{Kind: StmtDecl, Line: ln.num, HasType: true, DeclType: dt, Name: name, Expr: expr}, nil
	}

	switch kw {
	case "FOR":
		return p.parseForStmt()
	case "IF":
		return p.parseIfStmt()
	case "BREAK":
		p.pos++
		return CodeStmt{Kind: StmtBreak, Line: ln.num}, nil
	}

	if name, args, ok := tryCallSyntax(ln.text); ok && strings.ToUpper(name) == "REPLACE" {
		if len(args) != 3 {
			return CodeStmt{}, probeerr.NewSyntaxError(ln.num, "REPLACE statement expects 3 arguments, got %d", len(args))
		}
		target := strings.TrimSpace(args[0])
		if !value.IsIdentifier(target) {
			return CodeStmt{}, probeerr.NewSyntaxError(ln.num, "REPLACE statement's first argument must be a variable name, got %q", target)
		}
		search, err := parseExpr(args[1], ln.num)
		if err != nil {
			return CodeStmt{}, err
		}
		repl, err := parseExpr(args[2], ln.num)
		if err != nil {
			return CodeStmt{}, err
		}
		p.pos++
		return CodeStmt{Kind: StmtReplace, Line: ln.num, Target: target, Search: search, Replace: repl}, nil
	}

	if name, exprTok, ok := strings.Cut(ln.text, "="); ok {
		varName := strings.TrimSpace(name)
		if value.IsIdentifier(varName) {
			p.pos++
			expr, err := parseExpr(strings.TrimSpace(exprTok), ln.num)
			if err != nil {
				return CodeStmt{}, err
			}
			return CodeStmt{Kind: StmtAssign, Line: ln.num, Name: varName, Expr: expr}, nil
		}
	}

	return CodeStmt{}, probeerr.NewSyntaxError(ln.num, "unrecognized CODE statement %q", kw)
}

func (p *parser) parseForStmt() (CodeStmt, error) {
	header := p.cur()
	if !strings.HasSuffix(header.text, ":") {
		return CodeStmt{}, probeerr.NewSyntaxError(header.num, "FOR header must end with ':', got %q", header.text)
	}
	toks := fields(strings.TrimSuffix(header.text, ":"))
	if len(toks) != 4 || toks[0] != "FOR" || toks[2] != "IN" {
		return CodeStmt{}, probeerr.NewSyntaxError(header.num, "expected \"FOR <var> IN <seq>:\", got %q", header.text)
	}
	if !value.IsIdentifier(toks[1]) || !value.IsIdentifier(toks[3]) {
		return CodeStmt{}, probeerr.NewSyntaxError(header.num, "FOR loop variable and sequence must be identifiers, got %q", header.text)
	}
	headerIndent := header.indent
	p.pos++
	body, err := p.parseBody(headerIndent)
	if err != nil {
		return CodeStmt{}, err
	}
	return CodeStmt{Kind: StmtFor, Line: header.num, ForVar: toks[1], ForSeq: toks[3], ForBody: body}, nil
}

func (p *parser) parseIfStmt() (CodeStmt, error) {
	header := p.cur()
	if !strings.HasSuffix(header.text, ":") {
		return CodeStmt{}, probeerr.NewSyntaxError(header.num, "IF header must end with ':', got %q", header.text)
	}
	condTok := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(header.text, "IF"), ":"))
	cond, err := parseCondition(condTok, header.num)
	if err != nil {
		return CodeStmt{}, err
	}
	headerIndent := header.indent
	p.pos++
	body, err := p.parseBody(headerIndent)
	if err != nil {
		return CodeStmt{}, err
	}

	stmt := CodeStmt{Kind: StmtIf, Line: header.num, Cond: cond, Body: body}

	for !p.atEnd() && p.cur().indent == headerIndent && strings.HasPrefix(p.cur().text, "ELSE IF ") {
		eiLine := p.cur()
		if !strings.HasSuffix(eiLine.text, ":") {
			return CodeStmt{}, probeerr.NewSyntaxError(eiLine.num, "ELSE IF header must end with ':', got %q", eiLine.text)
		}
		eiCondTok := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(eiLine.text, "ELSE IF"), ":"))
		eiCond, err := parseCondition(eiCondTok, eiLine.num)
		if err != nil {
			return CodeStmt{}, err
		}
		p.pos++
		eiBody, err := p.parseBody(eiLine.indent)
		if err != nil {
			return CodeStmt{}, err
		}
		stmt.ElseIfs = append(stmt.ElseIfs, ElseIfClause{Cond: eiCond, Body: eiBody})
	}

	if !p.atEnd() && p.cur().indent == headerIndent && p.cur().text == "ELSE:" {
		elseLine := p.cur()
		p.pos++
		elseBody, err := p.parseBody(elseLine.indent)
		if err != nil {
			return CodeStmt{}, err
		}
		stmt.ElseBody = elseBody
	}

	return stmt, nil
}

// parseBody collects statements more indented than headerIndent, per
// the design note: a body ends at the next unindented statement or at
// the enclosing CODE_END, whichever comes first.
func (p *parser) parseBody(headerIndent int) ([]CodeStmt, error) {
	var stmts []CodeStmt
	for !p.atEnd() && p.cur().text != "CODE_END" && p.cur().indent > headerIndent {
		st, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, st)
	}
	return stmts, nil
}

// --- shared operand/expression helpers ---

func splitTwo(s string, ln int) (first, second string, err error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "\"") {
		end := strings.Index(s[1:], "\"")
		if end < 0 {
			return "", "", probeerr.NewSyntaxError(ln, "unterminated quoted string in %q", s)
		}
		first = s[:end+2]
		return first, strings.TrimSpace(s[end+2:]), nil
	}
	idx := strings.IndexAny(s, " \t")
	if idx < 0 {
		return "", "", probeerr.NewSyntaxError(ln, "expected two operands, got %q", s)
	}
	return s[:idx], strings.TrimSpace(s[idx+1:]), nil
}

func splitAssign(s string, ln int) (name, expr string, err error) {
	n, e, ok := strings.Cut(s, "=")
	if !ok {
		return "", "", probeerr.NewSyntaxError(ln, "expected \"<name> = <expr>\", got %q", s)
	}
	name = strings.TrimSpace(n)
	if !value.IsIdentifier(name) {
		return "", "", probeerr.NewSyntaxError(ln, "expected an identifier before '=', got %q", name)
	}
	return name, strings.TrimSpace(e), nil
}

func (p *parser) parseNumOperand(tok string, allowPacketLen bool, maxVal uint64, ln int) (NumOperand, error) {
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return NumOperand{}, probeerr.NewSyntaxError(ln, "expected a numeric operand, got nothing")
	}
	if tok == "PACKET_LEN" {
		if !allowPacketLen {
			return NumOperand{}, probeerr.NewSyntaxError(ln, "PACKET_LEN is not a valid operand here")
		}
		return NumOperand{Kind: NumPacketLen}, nil
	}
	if n, err := parseIntToken(tok); err == nil {
		if n > maxVal {
			return NumOperand{}, probeerr.NewSyntaxError(ln, "numeric literal %d exceeds the maximum %d for this command", n, maxVal)
		}
		return NumOperand{Kind: NumLiteral, Literal: n}, nil
	}
	if !value.IsIdentifier(tok) {
		return NumOperand{}, probeerr.NewSyntaxError(ln, "expected a numeric literal, PACKET_LEN, or variable name, got %q", tok)
	}
	return NumOperand{Kind: NumVar, VarName: tok}, nil
}

func (p *parser) parseStrOperand(tok string, ln int) (StrOperand, error) {
	tok = strings.TrimSpace(tok)
	if strings.HasPrefix(tok, "\"") {
		s, err := strconv.Unquote(tok)
		if err != nil {
			return StrOperand{}, probeerr.NewSyntaxError(ln, "invalid quoted string %q: %v", tok, err)
		}
		return StrOperand{Kind: StrLiteral, Literal: s}, nil
	}
	if !value.IsIdentifier(tok) {
		return StrOperand{}, probeerr.NewSyntaxError(ln, "expected a quoted string or a variable name, got %q", tok)
	}
	return StrOperand{Kind: StrVar, VarName: tok}, nil
}

func parseIntToken(tok string) (uint64, error) {
	tok = strings.TrimSpace(tok)
	if strings.HasPrefix(tok, "0x") || strings.HasPrefix(tok, "0X") {
		return strconv.ParseUint(tok[2:], 16, 64)
	}
	return strconv.ParseUint(tok, 10, 64)
}

func decodeWireHex(tok string, ln int) ([]byte, error) {
	b, err := decodeHexLiteral(strings.TrimSpace(tok))
	if err != nil {
		return nil, probeerr.NewSyntaxError(ln, "invalid hex literal %q: %v", tok, err)
	}
	return b, nil
}

// decodeHexLiteral mirrors wire.DecodeHexLiteral; duplicated here rather
// than imported to keep the parser decoupled from the wire codec
// (the parser only validates syntax, it never produces wire bytes
// directly other than recording the decoded literal on the AST).
func decodeHexLiteral(s string) ([]byte, error) {
	clean := make([]byte, 0, len(s))
	i := 0
	if len(s) >= 2 && (s[0:2] == "0x" || s[0:2] == "0X") {
		i = 2
	}
	for ; i < len(s); i++ {
		c := s[i]
		if c == ' ' || c == '\t' {
			continue
		}
		clean = append(clean, c)
	}
	if len(clean)%2 != 0 {
		return nil, fmt.Errorf("hex literal has odd digit count: %q", s)
	}
	out := make([]byte, len(clean)/2)
	for j := 0; j < len(out); j++ {
		hi, err := hexNibble(clean[j*2])
		if err != nil {
			return nil, err
		}
		lo, err := hexNibble(clean[j*2+1])
		if err != nil {
			return nil, err
		}
		out[j] = hi<<4 | lo
	}
	return out, nil
}

func hexNibble(c byte) (byte, error) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', nil
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, nil
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, nil
	default:
		return 0, fmt.Errorf("invalid hex digit %q", c)
	}
}

// tryCallSyntax recognizes "NAME(arg1, arg2, ...)" spanning the whole
// string, splitting arguments on top-level commas (respecting nested
// brackets and quotes).
func tryCallSyntax(s string) (name string, args []string, ok bool) {
	s = strings.TrimSpace(s)
	if !strings.HasSuffix(s, ")") {
		return "", nil, false
	}
	open := strings.Index(s, "(")
	if open < 0 {
		return "", nil, false
	}
	name = strings.TrimSpace(s[:open])
	if !value.IsIdentifier(name) {
		return "", nil, false
	}
	inner := s[open+1 : len(s)-1]
	if strings.TrimSpace(inner) == "" {
		return name, nil, true
	}
	return name, splitTopLevel(inner), true
}

// splitTopLevel splits s on commas that are not nested inside (), [],
// or a quoted string.
func splitTopLevel(s string) []string {
	var out []string
	depth := 0
	inQuote := false
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"':
			inQuote = !inQuote
		case inQuote:
		case c == '(' || c == '[':
			depth++
		case c == ')' || c == ']':
			depth--
		case c == ',' && depth == 0:
			out = append(out, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
	}
	out = append(out, strings.TrimSpace(s[start:]))
	return out
}

// parseExpr parses the small expression grammar: quoted string, numeric
// literal (decimal or hex, integer or float), array literal, call form,
// bracket index access, or identifier / dotted path.
func parseExpr(s string, ln int) (Expr, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Expr{}, probeerr.NewSyntaxError(ln, "expected an expression, got nothing")
	}

	if strings.HasPrefix(s, "\"") && strings.HasSuffix(s, "\"") && len(s) >= 2 {
		unq, err := strconv.Unquote(s)
		if err != nil {
			return Expr{}, probeerr.NewSyntaxError(ln, "invalid quoted string %q: %v", s, err)
		}
		return Expr{Kind: ExprLiteralString, Line: ln, LiteralStr: unq}, nil
	}

	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		inner := s[1 : len(s)-1]
		var elems []Expr
		if strings.TrimSpace(inner) != "" {
			for _, tok := range splitTopLevel(inner) {
				e, err := parseExpr(tok, ln)
				if err != nil {
					return Expr{}, err
				}
				elems = append(elems, e)
			}
		}
		return Expr{Kind: ExprArray, Line: ln, Elements: elems}, nil
	}

	if name, args, ok := tryCallSyntax(s); ok {
		var parsed []Expr
		for _, a := range args {
			e, err := parseExpr(a, ln)
			if err != nil {
				return Expr{}, err
			}
			parsed = append(parsed, e)
		}
		return Expr{Kind: ExprCall, Line: ln, CallName: strings.ToUpper(name), Args: parsed}, nil
	}

	if base, idxTok, ok := tryIndexSyntax(s); ok {
		if !value.IsIdentifier(base) {
			return Expr{}, probeerr.NewSyntaxError(ln, "index expression base must be an identifier, got %q", base)
		}
		idxExpr, err := parseExpr(idxTok, ln)
		if err != nil {
			return Expr{}, err
		}
		return Expr{Kind: ExprIndex, Line: ln, IndexBase: base, IndexExpr: &idxExpr}, nil
	}

	if n, isInt, ok := parseExprNumber(s); ok {
		return Expr{Kind: ExprLiteralNumber, Line: ln, LiteralNum: n, IsInt: isInt}, nil
	}

	if value.IsIdentifierPath(s) {
		return Expr{Kind: ExprIdent, Line: ln, Path: s}, nil
	}

	return Expr{}, probeerr.NewSyntaxError(ln, "unrecognized expression %q", s)
}

// tryIndexSyntax recognizes "name[expr]" spanning the whole string.
func tryIndexSyntax(s string) (base, idx string, ok bool) {
	if !strings.HasSuffix(s, "]") {
		return "", "", false
	}
	open := strings.Index(s, "[")
	if open < 0 {
		return "", "", false
	}
	return s[:open], s[open+1 : len(s)-1], true
}

func parseExprNumber(s string) (value float64, isInt bool, ok bool) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		n, err := strconv.ParseUint(s[2:], 16, 64)
		if err != nil {
			return 0, false, false
		}
		return float64(n), true, true
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return float64(n), true, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, false, true
	}
	return 0, false, false
}

// parseCondition parses an IF/ELSE IF predicate, checking operators in
// the priority order that avoids substring false-matches: CONTAINS
// first (it is a word, not a symbol), then the two-character comparison
// operators before their one-character prefixes.
func parseCondition(s string, ln int) (Condition, error) {
	type op struct {
		tok string
		cc  CondOp
	}
	ops := []op{
		{" CONTAINS ", CondContains},
		{"==", CondEq},
		{"!=", CondNe},
		{">=", CondGe},
		{"<=", CondLe},
		{">", CondGt},
		{"<", CondLt},
	}
	for _, o := range ops {
		if idx := strings.Index(s, o.tok); idx >= 0 {
			left, err := parseExpr(s[:idx], ln)
			if err != nil {
				return Condition{}, err
			}
			right, err := parseExpr(s[idx+len(o.tok):], ln)
			if err != nil {
				return Condition{}, err
			}
			return Condition{Op: o.cc, Left: left, Right: right, Line: ln}, nil
		}
	}
	return Condition{}, probeerr.NewSyntaxError(ln, "expected a comparison operator in condition %q", s)
}
