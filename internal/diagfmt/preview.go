package diagfmt

import (
	"fmt"

	"fortio.org/safecast"

	"tplcheck/internal/source"
)

type excerptLine struct {
	num  uint32
	text string
}

// excerpt is the source window printed under a pretty diagnostic. The marker
// covers [markStart, markEnd) bytes of the line numbered markLine.
type excerpt struct {
	lines     []excerptLine
	markLine  uint32
	markStart int
	markEnd   int
}

func buildExcerpt(fs *source.FileSet, span source.Span, context int) (excerpt, error) {
	if fs == nil {
		return excerpt{}, fmt.Errorf("nil FileSet")
	}
	file := fs.Get(span.File)
	if file == nil {
		return excerpt{}, fmt.Errorf("file %d not found in FileSet", span.File)
	}
	lenContent, err := safecast.Conv[uint32](len(file.Content))
	if err != nil {
		return excerpt{}, fmt.Errorf("len file content overflow: %w", err)
	}
	if span.Start > lenContent {
		return excerpt{}, fmt.Errorf("span start %d out of range for %s", span.Start, file.Path)
	}

	startPos, endPos := fs.Resolve(span)
	lineCount, err := safecast.Conv[uint32](len(file.LineIdx) + 1)
	if err != nil {
		return excerpt{}, fmt.Errorf("line count overflow: %w", err)
	}
	ctx, err := safecast.Conv[uint32](max(context, 0))
	if err != nil {
		return excerpt{}, fmt.Errorf("context overflow: %w", err)
	}

	first := uint32(1)
	if startPos.Line > ctx {
		first = startPos.Line - ctx
	}
	last := min(startPos.Line+ctx, lineCount)

	ex := excerpt{markLine: startPos.Line}
	for n := first; n <= last; n++ {
		ex.lines = append(ex.lines, excerptLine{num: n, text: file.GetLine(n)})
	}

	lineStart := lineStartOffset(file, startPos.Line)
	lineEnd := lineEndOffset(file, startPos.Line)
	ex.markStart = int(span.Start - lineStart)
	markEnd := max(span.End, span.Start)
	if endPos.Line != startPos.Line || markEnd > lineEnd {
		markEnd = lineEnd
	}
	ex.markEnd = max(int(markEnd-lineStart), ex.markStart+1)
	return ex, nil
}

func lineStartOffset(f *source.File, line uint32) uint32 {
	if line <= 1 {
		return 0
	}
	idx := line - 2
	if int(idx) < len(f.LineIdx) {
		return f.LineIdx[idx] + 1
	}
	lenFileContent, err := safecast.Conv[uint32](len(f.Content))
	if err != nil {
		panic(fmt.Errorf("len file content overflow: %w", err))
	}
	return lenFileContent
}

// lineEndOffset is the offset of the newline ending line, or the content length.
func lineEndOffset(f *source.File, line uint32) uint32 {
	if line == 0 {
		return 0
	}
	idx := line - 1
	if int(idx) < len(f.LineIdx) {
		return f.LineIdx[idx]
	}
	lenFileContent, err := safecast.Conv[uint32](len(f.Content))
	if err != nil {
		panic(fmt.Errorf("len file content overflow: %w", err))
	}
	return lenFileContent
}
