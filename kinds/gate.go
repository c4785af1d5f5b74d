package kinds

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/expr-lang/expr"

	scaffold "github.com/nemonical/freenet-scaffold"
)

// Gate is a schema-free document admitted by a rule the parameters
// carry. The rule is an expression over the document and, optionally,
// the states of related contracts; a document the rule rejects is
// invalid, not broken, so gating failures are verdicts rather than
// errors. Replication is whole-document: the revision counter plus a
// content fingerprint give replacement a total order to converge on.
type Gate struct {
	Rev uint64         `json:"rev,omitempty"`
	Doc map[string]any `json:"doc"`
}

type GateParams struct {
	// Rule is a boolean expression over env vars "doc" and "related";
	// empty admits everything.
	Rule string `json:"rule,omitempty"`
	// Related lists contract ids (hex) whose states the rule reads via
	// related["<hex id>"].
	Related []string `json:"related,omitempty"`
}

type GateSummary struct {
	Rev  uint64 `json:"rev,omitempty"`
	Hash uint64 `json:"hash"`
}

type GateDelta struct {
	Rev uint64         `json:"rev,omitempty"`
	Doc map[string]any `json:"doc,omitempty"`
}

func (g *Gate) Verify(p *GateParams) error {
	return g.check(p, map[string]any{})
}

// VerifyRelated resolves the ids the rule declares and exposes their
// decoded states to the expression. Unresolved ids are registered by
// the lookup itself; the rule only runs once everything is available.
func (g *Gate) VerifyRelated(related *scaffold.RelatedContracts, p *GateParams) error {
	env := make(map[string]any, len(p.Related))
	missing := false
	for _, ref := range p.Related {
		id, err := scaffold.ParseID(ref)
		if err != nil {
			return fmt.Errorf("related ref %q: %w", ref, err)
		}
		doc, err := scaffold.DecodeRelated[map[string]any](related, id)
		if err != nil {
			return err
		}
		if doc == nil {
			missing = true
			continue
		}
		env[ref] = *doc
	}
	if missing {
		return nil
	}
	return g.check(p, env)
}

func (g *Gate) check(p *GateParams, related map[string]any) error {
	if p.Rule == "" {
		return nil
	}
	env := map[string]any{
		"doc":     g.Doc,
		"related": related,
	}
	program, err := expr.Compile(p.Rule,
		expr.Env(env),
		expr.AllowUndefinedVariables(),
		expr.AsBool(),
	)
	if err != nil {
		return fmt.Errorf("rule: %w", err)
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return fmt.Errorf("rule: %w", err)
	}
	if ok, _ := out.(bool); !ok {
		return errors.New("rule rejected the document")
	}
	return nil
}

func (g *Gate) Summarize(p *GateParams) GateSummary {
	return GateSummary{Rev: g.Rev, Hash: g.fingerprint()}
}

func (g *Gate) Delta(p *GateParams, su *GateSummary) GateDelta {
	hash := g.fingerprint()
	if g.Rev > su.Rev || (g.Rev == su.Rev && hash > su.Hash) {
		return GateDelta{Rev: g.Rev, Doc: g.Doc}
	}
	return GateDelta{}
}

func (g *Gate) Apply(p *GateParams, d *GateDelta) error {
	if d.Doc == nil {
		return nil
	}
	if d.Rev < g.Rev {
		return nil
	}
	if d.Rev == g.Rev && fingerprintDoc(d.Doc) <= g.fingerprint() {
		return nil
	}
	g.Rev = d.Rev
	g.Doc = d.Doc
	return nil
}

// Set replaces the document one revision up.
func (g *Gate) Set(doc map[string]any) {
	g.Rev++
	g.Doc = doc
}

// fingerprint hashes the canonical encoding; map keys marshal sorted,
// so equal documents hash equal.
func (g *Gate) fingerprint() uint64 {
	return fingerprintDoc(g.Doc)
}

func fingerprintDoc(doc map[string]any) uint64 {
	raw, err := json.Marshal(doc)
	if err != nil {
		return 0
	}
	return xxhash.Sum64(raw)
}

func GateOps(opts ...scaffold.Option) scaffold.Ops {
	return scaffold.New[Gate, GateParams, GateSummary, GateDelta](opts...)
}
