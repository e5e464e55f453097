package sema

import (
	"fmt"
	"path/filepath"

	"github.com/moby/patternmatcher"

	"tplcheck/internal/ast"
	"tplcheck/internal/diag"
	"tplcheck/internal/source"
	"tplcheck/internal/symbols"
)

const deprecatedRuleName = "deprecated-usage"

// DeprecatedUsageRule warns about template references to deprecated component members.
// Only names read, written or called through the implicit receiver are considered,
// resolved the same way as every other template name.
type DeprecatedUsageRule struct {
	ctx     RuleContext
	opts    DeprecatedOptions
	exclude *patternmatcher.PatternMatcher
	err     error // bad exclude pattern, reported on first CheckNode
}

func NewDeprecatedUsageRule(ctx RuleContext, opts DeprecatedOptions) *DeprecatedUsageRule {
	r := &DeprecatedUsageRule{ctx: ctx, opts: opts}
	if opts.Enabled && len(opts.Exclude) > 0 {
		pm, err := patternmatcher.New(opts.Exclude)
		if err != nil {
			r.err = fmt.Errorf("invalid exclude pattern: %w", err)
		}
		r.exclude = pm
	}
	return r
}

func (r *DeprecatedUsageRule) Name() string { return deprecatedRuleName }

// ShouldCheck is false when the rule is disabled or file matches an exclude glob.
// A nil file is checked.
func (r *DeprecatedUsageRule) ShouldCheck(file *source.File) bool {
	if !r.opts.Enabled {
		return false
	}
	if r.err != nil || r.exclude == nil || file == nil {
		return true
	}
	path := file.Path
	if r.ctx.Files != nil {
		path = file.FormatPath("relative", r.ctx.Files.BaseDir())
	}
	excluded, err := r.exclude.MatchesOrParentMatches(filepath.FromSlash(path))
	if err != nil {
		r.err = fmt.Errorf("match %s: %w", path, err)
		return true
	}
	return !excluded
}

func (r *DeprecatedUsageRule) CheckNode(node NodeRef) ([]diag.Diagnostic, error) {
	if r.err != nil {
		return nil, r.err
	}
	if !r.opts.Enabled {
		return nil, ErrRuleDisabled
	}
	tree := r.ctx.Tree
	var sink diag.SliceReporter
	tree.Exprs.Walk(node.Expr, ast.ExprVisitorFunc(func(id ast.ExprID, expr *ast.Expr) bool {
		switch expr.Kind {
		case ast.ExprPropertyRead, ast.ExprSafePropertyRead, ast.ExprPropertyWrite:
		default:
			return true
		}
		prop, _ := tree.Exprs.Property(id)
		if !tree.Exprs.IsImplicitReceiver(prop.Receiver) {
			return true
		}
		target := r.ctx.Resolver.ExpressionTarget(id, r.ctx.Decl)
		if target.Kind != symbols.TargetMember {
			return true
		}
		member := tree.Components.Member(target.Member)
		if member == nil || !member.Deprecated {
			return true
		}
		span := prop.NameSpan.Or(expr.Span)
		name := tree.Name(member.Name)
		if reason := tree.Name(member.DeprecationMsg); reason != "" {
			diag.ReportWarning(&sink, diag.SemaDeprecatedUsage, span,
				fmt.Sprintf("member '%s' deprecated. %s", name, reason)).Emit()
		} else {
			diag.ReportWarning(&sink, diag.SemaDeprecatedUsage, span,
				fmt.Sprintf("member '%s' deprecated.", name)).Emit()
		}
		return true
	}))
	return sink.Items, nil
}
