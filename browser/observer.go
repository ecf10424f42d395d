package browser

import (
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// blockableTypes maps config names to Rod protocol resource types. Heavy
// resources are blocked (not just dropped) to keep batch bandwidth down;
// their URLs are still recorded before blocking, since a blocked widget
// asset is evidence all the same.
var blockableTypes = map[string]proto.NetworkResourceType{
	"Image":      proto.NetworkResourceTypeImage,
	"Stylesheet": proto.NetworkResourceTypeStylesheet,
	"Font":       proto.NetworkResourceTypeFont,
	"Media":      proto.NetworkResourceTypeMedia,
}

// Observer passively records every outbound request URL a page makes.
// It must be mounted before navigation and before any click: the hijack
// router only sees requests issued after it is installed.
type Observer struct {
	router *rod.HijackRouter

	mu         sync.Mutex
	loadPhase  []string
	clickPhase []string
	clicked    bool
}

// Observe installs the request recorder on the page and starts it.
func Observe(page *rod.Page, blockTypes []string) *Observer {
	blocked := make(map[proto.NetworkResourceType]struct{}, len(blockTypes))
	for _, name := range blockTypes {
		if rt, ok := blockableTypes[name]; ok {
			blocked[rt] = struct{}{}
		}
	}

	o := &Observer{router: page.HijackRequests()}

	// Pattern "*" + empty resourceType intercepts everything; we record
	// first, then decide whether to block or continue.
	_ = o.router.Add("*", "", func(h *rod.Hijack) {
		o.record(h.Request.URL().String())

		if _, shouldBlock := blocked[h.Request.Type()]; shouldBlock {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})

	// router.Run() blocks until Stop is called, so it gets its own goroutine.
	go o.router.Run()

	return o
}

func (o *Observer) record(url string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.clicked {
		o.clickPhase = append(o.clickPhase, url)
	} else {
		o.loadPhase = append(o.loadPhase, url)
	}
}

// MarkClick sets the phase boundary: requests recorded after this call
// belong to the interaction, not the page load.
func (o *Observer) MarkClick() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.clicked = true
}

// Requests returns the recorded URLs in arrival order, split by phase.
func (o *Observer) Requests() (load, click []string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	load = make([]string, len(o.loadPhase))
	copy(load, o.loadPhase)
	click = make([]string, len(o.clickPhase))
	copy(click, o.clickPhase)
	return load, click
}

// Stop detaches the recorder from the page.
func (o *Observer) Stop() {
	_ = o.router.Stop()
}
