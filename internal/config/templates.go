package config

import (
	"fmt"
	"os"
	"strings"
)

// Template returns a starter file for kind: "run", "plan" or "templates".
func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "run", "config":
		return runTemplate, nil
	case "plan":
		return planTemplate, nil
	case "templates":
		return templatesTemplate, nil
	default:
		return "", fmt.Errorf("unknown template kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	body, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("file already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(body), 0o644)
}

const runTemplate = `plan_file = "plan.xml"
template_files = ["templates.xml"]

# ascii | raw | udp | tcp | send | pcap
transport = "pcap"
host = "127.0.0.1"
port = 30001
capture_file = "out.pcap"

max_frame_size = 10485760
receive_timeout = "2s"
separator = "\n"

# metrics_file = "fastplan.prom"
# log_level = "info"
`

const planTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<plan>
  <message templateID="1">
    <uInt32 value="1"/>
    <ascii value="20240101-00:00:00"/>
  </message>
  <message templateName="Quote" from="10.0.0.1" to="10.0.0.2">
    <uInt32 value="2"/>
    <ascii value="IBM"/>
    <decimal value="101.25"/>
    <group value="">
      <byteVector value="0a1b"/>
    </group>
    <sequence value="">
      <group value=""><int64 value="100"/></group>
      <group value=""><int64 value="-50"/></group>
    </sequence>
  </message>
  <bytemessage>
    00000001 00000010
  </bytemessage>
</plan>
`

const templatesTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<templates xmlns="http://www.fixprotocol.org/ns/fast/td/1.1">
  <template name="Heartbeat" id="1">
    <uInt32 name="SeqNum" id="34"/>
    <string name="SendingTime" id="52"/>
  </template>
  <template name="Quote" id="2">
    <uInt32 name="SeqNum" id="34"/>
    <string name="Symbol" id="55"/>
    <decimal name="Price" id="44"/>
    <group name="Extra" presence="optional">
      <byteVector name="Raw" id="96"/>
    </group>
    <sequence name="Legs">
      <length name="NoLegs" id="555"/>
      <int64 name="Qty" id="38"/>
    </sequence>
  </template>
</templates>
`
