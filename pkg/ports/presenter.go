package ports

import "github.com/aretw0/patchbay/pkg/canvas"

// PreviewTarget displays the pixels of one node.
type PreviewTarget interface {
	Present(tex *canvas.Texture)
}

// Presenter resolves preview targets by node id.
// A node without a mounted target is simply not shown.
type Presenter interface {
	Target(nodeID string) (PreviewTarget, bool)
}

type multiTarget []PreviewTarget

func (m multiTarget) Present(tex *canvas.Texture) {
	for _, t := range m {
		t.Present(tex)
	}
}

// MultiPresenter shows a node on every presenter that has a target for it.
func MultiPresenter(ps ...Presenter) Presenter {
	var live []Presenter
	for _, p := range ps {
		if p != nil {
			live = append(live, p)
		}
	}
	return presenterFunc(func(id string) (PreviewTarget, bool) {
		var targets multiTarget
		for _, p := range live {
			if t, ok := p.Target(id); ok {
				targets = append(targets, t)
			}
		}
		switch len(targets) {
		case 0:
			return nil, false
		case 1:
			return targets[0], true
		}
		return targets, true
	})
}

type presenterFunc func(id string) (PreviewTarget, bool)

func (f presenterFunc) Target(id string) (PreviewTarget, bool) { return f(id) }
