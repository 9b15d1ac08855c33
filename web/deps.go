package web

import (
	"github.com/fedkit/tesserae/federation"
	"github.com/fedkit/tesserae/util"
)

// Deps bundles the dependencies gin handlers close over, the package's
// realization of "no global mutable state" (spec.md §9's redesign note):
// the application constructs one Deps and threads it through every route's
// closure rather than reaching for package-level singletons.
type Deps struct {
	Conf       *util.AppConfig
	Store      federation.Store
	Dispatcher *federation.InboxDispatcher
	Worker     *federation.DeliveryWorker
	Instance   *federation.InstanceActor
}

func (d *Deps) actorURI(username string) string {
	return "https://" + d.Conf.Conf.InstanceDomain + "/ap/users/" + username
}

func (d *Deps) versiaActorURI(username string) string {
	return "https://" + d.Conf.Conf.InstanceDomain + "/versia/users/" + username
}
