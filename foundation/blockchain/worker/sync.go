package worker

import "github.com/dxidlabs/ledger/foundation/blockchain/peer"

// Sync asks every known peer for its status, takes the transactions waiting
// in its mempool, and pulls any blocks this node is missing.
func (w *Worker) Sync() {
	w.evHandler("worker: sync: started")
	defer w.evHandler("worker: sync: completed")

	for _, pr := range w.state.RetrieveKnownPeers() {

		// Retrieve the status of this peer.
		peerStatus, err := w.state.NetRequestPeerStatus(pr)
		if err != nil {
			w.evHandler("worker: sync: NetRequestPeerStatus: %s: ERROR: %s", pr.Host, err)
			continue
		}

		// Add new peers to this node's list.
		w.addNewPeers(peerStatus.KnownPeers)

		// Retrieve the mempool from the peer.
		pool, err := w.state.NetRequestPeerMempool(pr)
		if err != nil {
			w.evHandler("worker: sync: NetRequestPeerMempool: %s: ERROR: %s", pr.Host, err)
		}
		for _, tx := range pool {
			if err := w.state.UpsertNodeTransaction(tx); err != nil {
				w.evHandler("worker: sync: NetRequestPeerMempool: %s: tx[%s]: WARNING: %s", pr.Host, tx, err)
			}
		}

		// If this peer has blocks we don't have, we need to add them.
		if peerStatus.LatestBlockHeight > w.state.RetrieveLatestBlock().Header.Height {
			w.evHandler("worker: sync: NetRequestPeerBlocks: %s: latestBlockHeight[%d]", pr.Host, peerStatus.LatestBlockHeight)

			if err := w.state.NetRequestPeerBlocks(pr); err != nil {
				w.evHandler("worker: sync: NetRequestPeerBlocks: %s: ERROR %s", pr.Host, err)
			}
		}
	}
}

// addNewPeers takes the list of known peers and makes sure they are included
// in the node's list of known peers.
func (w *Worker) addNewPeers(knownPeers []peer.Peer) {
	w.evHandler("worker: sync: addNewPeers: started")
	defer w.evHandler("worker: sync: addNewPeers: completed")

	for _, pr := range knownPeers {

		// Don't add this running node to the known peer list.
		if pr.Match(w.state.RetrieveHost()) {
			continue
		}

		if w.state.AddKnownPeer(pr) {
			w.evHandler("worker: sync: addNewPeers: adding peer-node %s", pr.Host)
		}
	}
}
