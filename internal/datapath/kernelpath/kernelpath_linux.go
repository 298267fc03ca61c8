//go:build linux

package kernelpath

import (
	"context"
	"errors"
	"fmt"
	"syscall"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/link"
	"github.com/cilium/ebpf/rlimit"
	nl "github.com/vishvananda/netlink"
)

// Start raises RLIMIT_MEMLOCK (best-effort), loads the compiled
// classifier object, ensures the clsact qdisc exists, and attaches the
// egress then ingress programs. Anything past the rlimit raise fails the
// whole start.
func (d *DataPath) Start(ctx context.Context) error {
	if err := rlimit.RemoveMemlock(); err != nil {
		d.cfg.Log.Warn("kernelpath: failed to raise RLIMIT_MEMLOCK, continuing anyway", "error", err)
	}

	spec, err := ebpf.LoadCollectionSpec(d.cfg.ProgramPath)
	if err != nil {
		return fmt.Errorf("%w: load classifier object %s: %v", ErrAttachFailed, d.cfg.ProgramPath, err)
	}

	coll, err := ebpf.NewCollection(spec)
	if err != nil {
		return fmt.Errorf("%w: create collection: %v", ErrAttachFailed, err)
	}
	d.coll = coll

	if err := d.ensureClsact(); err != nil {
		return fmt.Errorf("%w: ensure clsact qdisc: %v", ErrAttachFailed, err)
	}

	egressLink, err := d.attach(progEgress, ebpf.AttachTCXEgress)
	if err != nil {
		coll.Close()
		return fmt.Errorf("%w: attach egress classifier: %v", ErrAttachFailed, err)
	}
	d.egress = egressLink

	ingressLink, err := d.attach(progIngress, ebpf.AttachTCXIngress)
	if err != nil {
		egressLink.Close()
		coll.Close()
		return fmt.Errorf("%w: attach ingress classifier: %v", ErrAttachFailed, err)
	}
	d.ingress = ingressLink

	m, ok := coll.Maps[mapName]
	if !ok {
		d.Stop()
		return fmt.Errorf("%w: map %s not found in classifier object", ErrAttachFailed, mapName)
	}
	d.Map = m

	return nil
}

// ensureClsact adds a clsact qdisc to the interface. An "already exists"
// error is success: adding a fresh one is harmless if one is already
// present, following the errors.Is(err, syscall.EEXIST) idempotency
// idiom used elsewhere in this module.
func (d *DataPath) ensureClsact() error {
	nlLink, err := nl.LinkByName(d.cfg.InterfaceName)
	if err != nil {
		return fmt.Errorf("lookup interface: %w", err)
	}
	qdisc := &nl.GenericQdisc{
		QdiscAttrs: nl.QdiscAttrs{
			LinkIndex: nlLink.Attrs().Index,
			Handle:    nl.MakeHandle(0xffff, 0),
			Parent:    nl.HANDLE_CLSACT,
		},
		QdiscType: "clsact",
	}
	if err := nl.QdiscAdd(qdisc); err != nil && !errors.Is(err, syscall.EEXIST) {
		return err
	}
	return nil
}

func (d *DataPath) attach(progName string, attachType ebpf.AttachType) (link.Link, error) {
	prog, ok := d.coll.Programs[progName]
	if !ok {
		return nil, fmt.Errorf("program %s not found in classifier object", progName)
	}
	return link.AttachTCX(link.TCXOptions{
		Program:   prog,
		Attach:    attachType,
		Interface: ifaceIndex(d.cfg.InterfaceName),
	})
}

func ifaceIndex(name string) int {
	l, err := nl.LinkByName(name)
	if err != nil {
		return 0
	}
	return l.Attrs().Index
}

// Stop detaches both classifiers; the qdisc is left in place for external
// tooling to remove.
func (d *DataPath) Stop() error {
	if d.ingress != nil {
		d.ingress.Close()
	}
	if d.egress != nil {
		d.egress.Close()
	}
	if d.coll != nil {
		d.coll.Close()
	}
	return nil
}
