/*
Package platform is datavol's boundary with the operating system.

Platform answers the questions volume probing needs: which directories are
candidates, what state the mount behind a path is in, how much space it has
and whether the process may write to it. Notifier reports storage being
attached or removed.

On Linux, Host reads /proc/self/mountinfo through moby/sys/mountinfo. Every
mount below the configured mount roots (/media, /run/media and /mnt by
default) offers <mountpoint>/<app dir> as an external candidate. A mount is
treated as emulated when it is a FUSE or overlay filesystem, or when it
sits on the same device as the internal data directory. Removability comes
from /sys/class/block and labels from /dev/disk/by-label.

MountNotifier combines fsnotify watches on the mount roots with periodic
mount table comparison, since mounting over an existing directory produces
no inotify event.

The platformtest package provides scriptable fakes of both interfaces.
*/
package platform
