package graph

import (
	"fmt"
	"testing"

	"github.com/getAsterisk/stackwalk/internal/engine/extract"
)

func benchmarkFiles(b *testing.B, files, funcs int) []*extract.FileResult {
	b.Helper()
	out := make([]*extract.FileResult, 0, files)
	for i := 0; i < files; i++ {
		f := newFile(b, fmt.Sprintf("pkg%d/mod%d.py", i%10, i), "python")
		if i > 0 {
			f.imports(fmt.Sprintf("mod%d", i-1), fmt.Sprintf("pkg%d", (i-1)%10), fmt.Sprintf("mod%d", i-1))
		}
		for j := 0; j < funcs; j++ {
			f.fn(fmt.Sprintf("f%d", j))
			if j > 0 {
				f.call(fmt.Sprintf("f%d", j-1))
			}
			if i > 0 {
				f.call(fmt.Sprintf("mod%d.f%d", i-1, j))
			}
			f.call("print")
			f.end()
		}
		out = append(out, f.done())
	}
	return out
}

func BenchmarkBuild(b *testing.B) {
	files := benchmarkFiles(b, 200, 20)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		run := Merge(files)
		Build(run, NewResolver(run, testLanguages, Policy{}))
	}
}
